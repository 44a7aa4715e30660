package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"f0oster/adwarden/activedirectory"
	"f0oster/adwarden/audit"
	"f0oster/adwarden/collector"
	"f0oster/adwarden/config"
	"f0oster/adwarden/database"
	"f0oster/adwarden/metrics"
	"f0oster/adwarden/workflows"

	"go.uber.org/zap"
)

const usage = `usage: adwarden <command> [flags]

commands:
  sync             mirror directory state (-mode users|computers|disabled|all)
  create-user      provision a new account
  disable-user     disable an account and park it in the disabled container
  unlock-user      clear an account lockout
  delete-user      remove a user object
  delete-computer  remove a computer object and its subtree
  sync-groups      reconcile a user's group memberships
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	app := newApp(logger)
	defer app.close()

	ctx := context.Background()

	switch os.Args[1] {
	case "sync":
		app.runSync(ctx, os.Args[2:])
	case "create-user":
		app.runCreateUser(ctx, os.Args[2:])
	case "disable-user":
		app.runDisableUser(ctx, os.Args[2:])
	case "unlock-user":
		app.runUnlockUser(ctx, os.Args[2:])
	case "delete-user":
		app.runDeleteUser(ctx, os.Args[2:])
	case "delete-computer":
		app.runDeleteComputer(ctx, os.Args[2:])
	case "sync-groups":
		app.runSyncGroups(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

type app struct {
	cfg       config.Configuration
	store     *database.Store
	sink      audit.Sink
	workflows *workflows.Service
	logger    *zap.Logger
}

func newApp(logger *zap.Logger) *app {
	cfg := config.LoadEnvConfig(envOrDefault("ADWARDEN_CONF", "settings.env"))

	store := database.NewStore(cfg.MirrorDSN, logger)
	if err := store.Connect(context.Background()); err != nil {
		logger.Fatal("mirror unavailable", zap.Error(err))
	}

	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr, logger)
	}

	sink := audit.Sink(audit.NewPostgresSink(store.Pool, logger))

	connect := func(creds workflows.Credentials) (workflows.Directory, error) {
		instance := activedirectory.NewInstance(cfg.BaseDN, cfg.DcFQDN, cfg.PageSize, cfg.BindTimeout, logger)
		if err := instance.Connect(creds.Username, creds.Password); err != nil {
			return nil, err
		}
		return instance, nil
	}

	wf := workflows.NewService(
		connect,
		store,
		sink,
		cfg.DisabledContainer,
		cfg.UsersContainer,
		cfg.BaseGroup,
		upnSuffixFromBaseDN(cfg.BaseDN),
		logger,
	)

	return &app{cfg: cfg, store: store, sink: sink, workflows: wf, logger: logger}
}

func (a *app) close() {
	a.store.Close()
}

// syncService binds a fresh directory session as the configured sync identity
// and assembles the collector around it. The caller owns closing the session.
func (a *app) syncService() (*collector.Service, func()) {
	instance := activedirectory.NewInstance(a.cfg.BaseDN, a.cfg.DcFQDN, a.cfg.PageSize, a.cfg.BindTimeout, a.logger)
	if err := instance.Connect(a.cfg.Username, a.cfg.Password); err != nil {
		a.logger.Fatal("directory unavailable", zap.Error(err))
	}

	crawler := collector.NewCrawler(instance, a.cfg.CrawlRate, a.logger)
	service := collector.NewService(
		instance,
		a.store,
		crawler,
		a.cfg.RootGroup,
		a.cfg.DisabledContainer,
		a.cfg.ManualDepartments,
		a.logger,
	)
	return service, instance.Close
}

func (a *app) runSync(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	mode := fs.String("mode", "all", "users, computers, disabled or all")
	fs.Parse(args)

	service, done := a.syncService()
	defer done()

	runUsers := *mode == "users" || *mode == "all"
	runComputers := *mode == "computers" || *mode == "all"
	runDisabled := *mode == "disabled" || *mode == "all"
	if !runUsers && !runComputers && !runDisabled {
		a.logger.Fatal("unknown sync mode", zap.String("mode", *mode))
	}

	if runUsers {
		if err := service.SyncUsers(ctx); err != nil {
			a.logger.Fatal("user sync failed", zap.Error(err))
		}
	}
	if runComputers {
		if err := service.SyncComputers(ctx); err != nil {
			a.logger.Fatal("computer sync failed", zap.Error(err))
		}
	}
	if runDisabled {
		if err := service.SyncDisabledUsers(ctx); err != nil {
			a.logger.Fatal("disabled-user sync failed", zap.Error(err))
		}
	}
}

func (a *app) runCreateUser(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	creds := credentialFlags(fs)
	accountName := fs.String("username", "", "logon name of the new account")
	displayName := fs.String("name", "", "display name")
	givenName := fs.String("given-name", "", "given name")
	surname := fs.String("surname", "", "surname")
	mail := fs.String("mail", "", "mail address")
	title := fs.String("title", "", "job title")
	department := fs.String("department", "", "department")
	password := fs.String("password", "", "initial password")
	groups := fs.String("groups", "", "comma-separated groups to join")
	forceChange := fs.Bool("force-password-change", true, "require a password change at first logon")
	fs.Parse(args)

	params := workflows.CreateUserParams{
		AccountName:         *accountName,
		DisplayName:         *displayName,
		GivenName:           *givenName,
		Surname:             *surname,
		Mail:                *mail,
		Title:               *title,
		Department:          *department,
		Password:            *password,
		Groups:              splitList(*groups),
		ForcePasswordChange: *forceChange,
	}

	result, err := a.workflows.CreateUser(ctx, creds(), params, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionCreateUser, creds().Username, *accountName, result, err)
}

func (a *app) runDisableUser(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("disable-user", flag.ExitOnError)
	creds := credentialFlags(fs)
	username := fs.String("username", "", "logon name to disable")
	fs.Parse(args)

	result, err := a.workflows.DisableUser(ctx, creds(), *username, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionDisableUser, creds().Username, *username, result, err)

	// The account just moved containers; refresh the disabled mirror so the
	// row shows up without waiting for the next scheduled pass.
	if err == nil {
		service, done := a.syncService()
		defer done()
		if err := service.SyncDisabledUsers(ctx); err != nil {
			a.logger.Error("post-disable mirror refresh failed", zap.Error(err))
		}
	}
}

func (a *app) runUnlockUser(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unlock-user", flag.ExitOnError)
	creds := credentialFlags(fs)
	username := fs.String("username", "", "logon name to unlock")
	fs.Parse(args)

	result, err := a.workflows.UnlockUser(ctx, creds(), *username, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionUnlockUser, creds().Username, *username, result, err)
}

func (a *app) runDeleteUser(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("delete-user", flag.ExitOnError)
	creds := credentialFlags(fs)
	username := fs.String("username", "", "logon name to delete")
	fs.Parse(args)

	result, err := a.workflows.DeleteUser(ctx, creds(), *username, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionDeleteUser, creds().Username, *username, result, err)
}

func (a *app) runDeleteComputer(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("delete-computer", flag.ExitOnError)
	creds := credentialFlags(fs)
	hostname := fs.String("hostname", "", "computer name to delete")
	fs.Parse(args)

	result, err := a.workflows.DeleteComputer(ctx, creds(), *hostname, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionDeleteComputer, creds().Username, *hostname, result, err)
}

func (a *app) runSyncGroups(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sync-groups", flag.ExitOnError)
	creds := credentialFlags(fs)
	username := fs.String("username", "", "logon name to reconcile")
	groups := fs.String("groups", "", "comma-separated desired groups")
	displayName := fs.String("name", "", "new display name (empty leaves unchanged)")
	description := fs.String("description", "", "new description (empty leaves unchanged)")
	seniority := fs.String("seniority", "", "new seniority (empty leaves unchanged)")
	fs.Parse(args)

	updates := workflows.ScalarUpdates{
		DisplayName: *displayName,
		Description: *description,
		Seniority:   *seniority,
	}

	result, err := a.workflows.SyncUserGroups(ctx, creds(), *username, splitList(*groups), updates, creds().Username)
	a.finishWorkflow(ctx, workflows.ActionSyncGroups, creds().Username, *username, result, err)
}

// finishWorkflow closes out a workflow invocation. Successful workflows have
// already recorded their own SUCCESS audit entry; the ERROR entry belongs to
// the caller.
func (a *app) finishWorkflow(ctx context.Context, action, executor, target string, result *workflows.Result, err error) {
	if err != nil {
		metrics.WorkflowOutcomes.WithLabelValues(action, string(audit.StatusError)).Inc()
		a.sink.Record(ctx, action, executor, target, audit.StatusError, err.Error())
		a.logger.Fatal("workflow failed",
			zap.String("action", action),
			zap.String("target", target),
			zap.Error(err))
	}

	for _, warning := range result.Warnings {
		a.logger.Warn("workflow warning",
			zap.String("action", action),
			zap.String("target", target),
			zap.String("warning", warning))
	}
	a.logger.Info("workflow complete",
		zap.String("action", action),
		zap.String("target", target),
		zap.Bool("found", result.Found),
		zap.String("details", result.Details))
}

// credentialFlags registers the acting-administrator flags and returns a
// getter that fails fast when either is missing.
func credentialFlags(fs *flag.FlagSet) func() workflows.Credentials {
	asUser := fs.String("as-user", "", "bind as this administrator")
	asPass := fs.String("as-pass", "", "administrator password")
	return func() workflows.Credentials {
		if *asUser == "" || *asPass == "" {
			log.Fatal("-as-user and -as-pass are required for mutation commands")
		}
		return workflows.Credentials{Username: *asUser, Password: *asPass}
	}
}

// upnSuffixFromBaseDN derives the UPN suffix from the dc components, e.g.
// DC=corp,DC=example,DC=com yields corp.example.com.
func upnSuffixFromBaseDN(baseDN string) string {
	var parts []string
	for _, component := range strings.Split(baseDN, ",") {
		component = strings.TrimSpace(component)
		if len(component) > 3 && strings.EqualFold(component[:3], "dc=") {
			parts = append(parts, component[3:])
		}
	}
	return strings.Join(parts, ".")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
