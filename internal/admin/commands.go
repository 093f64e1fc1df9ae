package admin

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/services"
)

var (
	ErrUsage         = errors.New("usage")
	errEmptyPassword = errors.New("empty password")
)

// openFile is a test seam for os.Open.
var openFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }

type command struct {
	usage string
	nargs int
	run   func(c *CLI, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":      {"register <name>", 1, (*CLI).register},
	"verify":        {"verify <user-id>", 1, (*CLI).verify},
	"login":         {"login <user-id>", 1, (*CLI).login},
	"rotate":        {"rotate <user-id>", 1, (*CLI).rotate},
	"load":          {"load <user-id>", 1, (*CLI).load},
	"rename":        {"rename <user-id> <name>", 2, (*CLI).rename},
	"read":          {"read <user-id> <membership|possession>", 2, (*CLI).read},
	"members":       {"members <membership|possession> <foreign-id>", 2, (*CLI).members},
	"append":        {"append <user-id> <membership|possession> <foreign-id>", 3, (*CLI).append},
	"register-file": {"register-file <user-id> <path>", 2, (*CLI).registerFile},
	"create-clique": {"create-clique <name>", 1, (*CLI).createClique},
	"share":         {"share <clique-id> <metadata-id>", 2, (*CLI).share},
}

// CLI executes one command against a Backend and writes the result to out.
type CLI struct {
	backend Backend
	out     io.Writer
}

func New(b Backend, out io.Writer) *CLI {
	return &CLI{backend: b, out: out}
}

// Run dispatches args[0] with the remaining args. Errors wrapping ErrUsage
// mean the command line itself was wrong.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		c.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	if len(args)-1 != cmd.nargs {
		return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}

	return cmd.run(c, ctx, args[1:])
}

func (c *CLI) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.out, "Available commands:")
	for _, name := range names {
		fmt.Fprintln(c.out, "  "+commands[name].usage)
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrUsage, what, s)
	}
	return id, nil
}

func parseRelation(s string) (models.Relation, error) {
	rel, err := models.ParseRelation(s)
	if err != nil {
		return models.Relation{}, fmt.Errorf("%w: %q: %w", ErrUsage, s, err)
	}
	return rel, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (c *CLI) register(ctx context.Context, args []string) error {
	pw, err := getPassword(c.out, "Enter password")
	if err != nil {
		return err
	}
	u, err := c.backend.Issue(ctx, args[0], pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "user %d created\n", u.ID)
	return nil
}

func (c *CLI) verify(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	pw, err := getPassword(c.out, "Enter password")
	if err != nil {
		return err
	}
	ok, err := c.backend.Verify(ctx, id, pw)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(c.out, "ok")
	} else {
		fmt.Fprintln(c.out, "mismatch")
	}
	return nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	pw, err := getPassword(c.out, "Enter password")
	if err != nil {
		return err
	}
	token, err := c.backend.Login(ctx, id, pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	return nil
}

func (c *CLI) rotate(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	current, err := getPassword(c.out, "Current password")
	if err != nil {
		return err
	}
	next, err := getPassword(c.out, "New password")
	if err != nil {
		return err
	}
	if err := c.backend.Rotate(ctx, id, current, next); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "password changed")
	return nil
}

func (c *CLI) load(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	u, err := c.backend.Load(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "id:      %d\nname:    %s\ncliques: %s\nfiles:   %s\nversion: %d\n",
		u.ID, u.Name, formatIDs(u.CliqueIDs), formatIDs(u.PossessedFileIDs), u.Version)
	return nil
}

func (c *CLI) rename(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	u, err := c.backend.Rename(ctx, id, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "user %d renamed to %s\n", u.ID, u.Name)
	return nil
}

func (c *CLI) read(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	rel, err := parseRelation(args[1])
	if err != nil {
		return err
	}
	ids, err := c.backend.Read(ctx, id, rel)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatIDs(ids))
	return nil
}

func (c *CLI) members(ctx context.Context, args []string) error {
	rel, err := parseRelation(args[0])
	if err != nil {
		return err
	}
	id, err := parseID(args[1], "foreign-id")
	if err != nil {
		return err
	}
	ids, err := c.backend.ReadMirror(ctx, rel, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatIDs(ids))
	return nil
}

func (c *CLI) append(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}
	rel, err := parseRelation(args[1])
	if err != nil {
		return err
	}
	foreignID, err := parseID(args[2], "foreign-id")
	if err != nil {
		return err
	}
	ids, err := c.backend.Append(ctx, id, rel, foreignID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatIDs(ids))
	return nil
}

func (c *CLI) registerFile(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "user-id")
	if err != nil {
		return err
	}

	f, err := openFile(args[1])
	if err != nil {
		return err
	}
	hash, err := services.HashContent(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	m, err := c.backend.RegisterFile(ctx, id, hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "file %d %s possessors %s\n", m.ID, hex.EncodeToString(m.ContentHash[:]), formatIDs(m.PossessorIDs))
	return nil
}

func (c *CLI) createClique(ctx context.Context, args []string) error {
	cl, err := c.backend.CreateClique(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "clique %d created\n", cl.ID)
	return nil
}

func (c *CLI) share(ctx context.Context, args []string) error {
	cliqueID, err := parseID(args[0], "clique-id")
	if err != nil {
		return err
	}
	metadataID, err := parseID(args[1], "metadata-id")
	if err != nil {
		return err
	}
	ids, err := c.backend.ShareFile(ctx, cliqueID, metadataID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatIDs(ids))
	return nil
}
