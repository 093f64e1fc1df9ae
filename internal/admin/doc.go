// Package admin implements the operator command line of cliquefs. Commands
// run one at a time against the database through the same services the
// server uses: issuing and checking credentials, appending relations,
// registering files and creating cliques.
package admin
