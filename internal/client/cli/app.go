// Package cli runs one client command and prints its result as JSON.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const Usage = `usage: client [-a addr] [-t seconds] [-c config.json] <command>

commands:
  content <course>
  points <course> <user> [staff]
  invalidate-points <course> <user>
  invalidate-content <course>`

var ErrUsage = errors.New("invalid command line")

// Service is the subset of the gRPC client the commands use.
type Service interface {
	GetContent(ctx context.Context, courseID int64) (map[string]any, error)
	GetPoints(ctx context.Context, courseID, userID int64, staff bool) (map[string]any, error)
	InvalidatePoints(ctx context.Context, courseID, userID int64) error
	InvalidateContent(ctx context.Context, courseID int64) error
}

type App struct {
	svc Service
	out io.Writer
}

func NewApp(svc Service, out io.Writer) *App {
	return &App{svc: svc, out: out}
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "content":
		ids, err := parseIDs(rest, 1, 1)
		if err != nil {
			return err
		}
		tree, err := a.svc.GetContent(ctx, ids[0])
		if err != nil {
			return err
		}
		return a.print(tree)

	case "points":
		ids, err := parseIDs(rest, 2, 3)
		if err != nil {
			return err
		}
		staff := false
		if len(rest) == 3 {
			if rest[2] != "staff" {
				return fmt.Errorf("%w: expected \"staff\", got %q", ErrUsage, rest[2])
			}
			staff = true
		}
		view, err := a.svc.GetPoints(ctx, ids[0], ids[1], staff)
		if err != nil {
			return err
		}
		return a.print(view)

	case "invalidate-points":
		ids, err := parseIDs(rest, 2, 2)
		if err != nil {
			return err
		}
		return a.svc.InvalidatePoints(ctx, ids[0], ids[1])

	case "invalidate-content":
		ids, err := parseIDs(rest, 1, 1)
		if err != nil {
			return err
		}
		return a.svc.InvalidateContent(ctx, ids[0])

	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// parseIDs reads the first want arguments as ids; up to limit arguments in
// total are accepted.
func parseIDs(args []string, want, limit int) ([]int64, error) {
	if len(args) < want || len(args) > limit {
		return nil, fmt.Errorf("%w: wrong number of arguments", ErrUsage)
	}
	ids := make([]int64, want)
	for i := range want {
		id, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an id", ErrUsage, args[i])
		}
		ids[i] = id
	}
	return ids, nil
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
