package cli

import (
	"strings"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/spf13/pflag"
)

// statusList is a comma-separated, repeatable --status flag.
type statusList []domain.SessionStatus

var _ pflag.Value = (*statusList)(nil)

func (s *statusList) String() string {
	parts := make([]string, len(*s))
	for i, st := range *s {
		parts[i] = string(st)
	}
	return strings.Join(parts, ",")
}

func (s *statusList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		st, err := domain.ParseStatus(part)
		if err != nil {
			return err
		}
		*s = append(*s, st)
	}
	return nil
}

func (s *statusList) Type() string { return "statuses" }

// pageFlags binds --page and --limit.
type pageFlags struct {
	page  int
	limit int
}

func (p *pageFlags) bind(fs *pflag.FlagSet) {
	fs.IntVar(&p.page, "page", 0, "Page number, starting at 1")
	fs.IntVar(&p.limit, "limit", 0, "Results per page (max 100)")
}

// ownerFlags binds --user and --all, which pick whose records to list.
type ownerFlags struct {
	user string
	all  bool
}

func (o *ownerFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.user, "user", "", "List this user's records (default: yourself)")
	fs.BoolVar(&o.all, "all", false, "List records of every user")
}

func (o *ownerFlags) userID(app *App) string {
	switch {
	case o.all:
		return ""
	case o.user != "":
		return o.user
	default:
		return app.requesterID()
	}
}
