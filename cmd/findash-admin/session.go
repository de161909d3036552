package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/findash/findash/config"
	"github.com/findash/findash/internal/adapters/backend"
	"github.com/findash/findash/internal/bootstrap"
	domainauth "github.com/findash/findash/internal/domain/auth"
	"github.com/findash/findash/internal/ports"
	"github.com/findash/findash/internal/service"
	"github.com/redis/go-redis/v9"
)

type loginOptions struct {
	Email    string
	Password string
}

type accessOptions struct {
	Role        string
	Permissions []string
}

type clearSessionOptions struct {
	Yes bool
}

// sessionEnv is the session service plus the resources behind it.
type sessionEnv struct {
	Sessions *service.SessionService
	Store    ports.UserStore
	redis    redis.UniversalClient
	logger   *slog.Logger
}

func (e *sessionEnv) Close() {
	if e.redis == nil {
		return
	}
	if err := e.redis.Close(); err != nil {
		e.logger.Error("close redis failed", "error", err)
	}
}

// openSessions builds the configured user store. A backend client is attached
// only when withBackend is set.
func openSessions(cmdCtx *commandContext, withBackend bool) (*sessionEnv, error) {
	cfg := cmdCtx.Config
	env := &sessionEnv{logger: cmdCtx.Logger}

	if cfg.Session.Store == config.SessionStoreRedis {
		rdb, err := bootstrap.ConnectRedis(cmdCtx.Ctx, bootstrap.RedisConnConfig{Redis: cfg.Redis, Logger: cmdCtx.Logger})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		env.redis = rdb
	}

	store, err := bootstrap.BuildUserStore(cfg.Session, env.redis)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = store

	opts := service.SessionServiceOptions{Store: store, Logger: cmdCtx.Logger}
	if withBackend {
		client, clientErr := backend.New(backend.Options{
			BaseURL: cfg.Backend.URL,
			Timeout: cfg.Backend.Timeout,
			Logger:  cmdCtx.Logger,
		})
		if clientErr != nil {
			env.Close()
			return nil, fmt.Errorf("backend client: %w", clientErr)
		}
		opts.Backend = client
	}
	env.Sessions = service.NewSessionService(opts)
	return env, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = promptPassword(cmdCtx); err != nil {
			return err
		}
	}

	env, err := openSessions(cmdCtx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Sessions.Login(cmdCtx.Ctx, opts.Email, opts.Password)
	if err != nil {
		return err
	}
	return printUser(cmdCtx.Out, &res.User)
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	env, err := openSessions(cmdCtx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	user, ok := env.Sessions.CurrentUser(cmdCtx.Ctx)
	if !ok {
		return writeln(cmdCtx.Out, "No user record stored.")
	}
	return printUser(cmdCtx.Out, user)
}

func runClearSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSessionFlags(args)
	if err != nil {
		return err
	}

	env, err := openSessions(cmdCtx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	user, ok := env.Sessions.CurrentUser(cmdCtx.Ctx)
	if !ok {
		return writeln(cmdCtx.Out, "No user record stored.")
	}
	if !opts.Yes {
		if err := confirm(cmdCtx, fmt.Sprintf("Remove the stored record for %s?", user.Email)); err != nil {
			return err
		}
	}
	env.Sessions.ForceLogout(cmdCtx.Ctx)
	return writef(cmdCtx.Out, "Removed stored record for %s.\n", user.Email)
}

func runAccess(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccessFlags(args)
	if err != nil {
		return err
	}
	user := domainauth.User{Role: opts.Role, Permissions: opts.Permissions}
	return printAccess(cmdCtx.Out, &user)
}

func printUser(w io.Writer, u *domainauth.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"ID", fmt.Sprint(u.ID)},
		{"Name", u.Name},
		{"Email", u.Email},
		{"Role", u.Role},
		{"Permissions", strings.Join(u.Permissions, ", ")},
	}
	if u.CompanyName != "" {
		rows = append(rows, [2]string{"Company", u.CompanyName})
	}
	if u.DepartmentName != "" {
		rows = append(rows, [2]string{"Department", u.DepartmentName})
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write user row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush user table: %w", err)
	}
	if err := writeln(w); err != nil {
		return err
	}
	return printAccess(w, u)
}

func printAccess(w io.Writer, u *domainauth.User) error {
	if err := writeln(w, "Navigation:"); err != nil {
		return err
	}
	nav := domainauth.Navigation(*u)
	if len(nav) == 0 {
		if err := writeln(w, "  (none)"); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range nav {
		if err := writef(tw, "  %s\t%s\t%s\n", item.Label, item.Path, item.Permission); err != nil {
			return fmt.Errorf("write navigation row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush navigation table: %w", err)
	}

	features := domainauth.AccessibleFeatures(u.Role)
	labels := make([]string, 0, len(features))
	for _, p := range features {
		labels = append(labels, p.Label())
	}
	if len(labels) == 0 {
		labels = append(labels, "(none)")
	}
	if err := writef(w, "Features (%s): %s\n", displayRole(u.Role), strings.Join(labels, ", ")); err != nil {
		return err
	}

	return writef(w, "Manage income: %s  Manage budget: %s  Edit expenses: %s\n",
		yesNo(domainauth.CanManageIncome(*u)),
		yesNo(domainauth.CanManageBudget(*u)),
		yesNo(domainauth.CanEditExpenses(*u)))
}

func displayRole(role string) string {
	if role == "" {
		return "no role"
	}
	return role
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func promptPassword(cmdCtx *commandContext) (string, error) {
	if err := writef(os.Stderr, "Password: "); err != nil {
		return "", fmt.Errorf("print password prompt: %w", err)
	}
	line, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func confirm(cmdCtx *commandContext, question string) error {
	if err := writef(os.Stderr, "%s Type \"yes\" to continue: ", question); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if strings.TrimSpace(resp) != "yes" {
		return errors.New("aborted by user")
	}
	return nil
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password (prompted when empty)")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return loginOptions{}, errors.New("--email is required")
	}
	return opts, nil
}

func parseClearSessionFlags(args []string) (clearSessionOptions, error) {
	fs := flag.NewFlagSet("clear-session", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts clearSessionOptions
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearSessionOptions{}, err
	}
	return opts, nil
}

func parseAccessFlags(args []string) (accessOptions, error) {
	fs := flag.NewFlagSet("access", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts  accessOptions
		perms string
	)
	fs.StringVar(&opts.Role, "role", domainauth.DefaultRole, "Role to evaluate (Admin, Manager, User)")
	fs.StringVar(&perms, "permissions", "", "Comma-separated permission tokens")

	if err := fs.Parse(args); err != nil {
		return accessOptions{}, err
	}
	opts.Role = strings.TrimSpace(opts.Role)
	opts.Permissions = []string{}
	for _, p := range strings.Split(perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.Permissions = append(opts.Permissions, p)
		}
	}
	return opts, nil
}
