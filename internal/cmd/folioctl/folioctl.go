// Package folioctl builds the Folio maintenance command tree.
package folioctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sitecmd "github.com/louisbranch/folio/internal/cmd/site"
	entrypoint "github.com/louisbranch/folio/internal/platform/cmd"
	"github.com/louisbranch/folio/internal/platform/logging"
	siteserver "github.com/louisbranch/folio/internal/services/site"
	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options overrides process streams and the logger, mostly for tests.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

type cli struct {
	cfg    sitecmd.Config
	opts   Options
	logger *zap.Logger
}

// NewRootCommand builds the command tree. Environment defaults are read
// here so flag help shows the effective values.
func NewRootCommand(opts Options) (*cobra.Command, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	c := &cli{opts: opts}
	if err := entrypoint.ParseConfig(&c.cfg); err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:           "folioctl",
		Short:         "Folio maintenance commands",
		Long:          "folioctl runs one-off maintenance against a Folio database and upload directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.DBPath, "db", c.cfg.DBPath, "SQLite database path")
	flags.StringVar(&c.cfg.UploadDir, "upload-dir", c.cfg.UploadDir, "Directory holding uploaded files")
	flags.StringVar(&c.cfg.PublicBaseURL, "base-url", c.cfg.PublicBaseURL, "Public base URL")
	flags.StringVar(&c.cfg.IndexNowKey, "indexnow-key", c.cfg.IndexNowKey, "IndexNow verification key")
	flags.StringVar(&c.cfg.IndexNowEndpoint, "indexnow-endpoint", c.cfg.IndexNowEndpoint, "IndexNow API endpoint")
	flags.DurationVar(&c.cfg.OrphanGrace, "orphan-grace", c.cfg.OrphanGrace, "Minimum age before an unreferenced upload is an orphan")
	flags.StringVar(&c.cfg.Logging.Level, "log-level", c.cfg.Logging.Level, "Log level")

	root.AddCommand(
		c.migrateCommand(),
		c.adminCommand(),
		c.usersCommand(),
		c.orphansCommand(),
		c.indexNowCommand(),
		c.themeCommand(),
	)
	return root, nil
}

// Execute runs folioctl with process arguments.
func Execute(ctx context.Context) error {
	root, err := NewRootCommand(Options{})
	if err != nil {
		return err
	}
	return root.ExecuteContext(ctx)
}

func (c *cli) log() (*zap.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	if c.opts.Logger != nil {
		c.logger = c.opts.Logger
		return c.logger, nil
	}
	logger, err := logging.New(entrypoint.ServiceFolioctl, c.cfg.Logging)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

func (c *cli) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *siteserver.Runtime) error) error {
	logger, err := c.log()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := siteserver.OpenRuntime(ctx, c.cfg.ServerConfig(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				applied, err := rt.Store.AppliedMigrations(ctx)
				if err != nil {
					return err
				}
				for _, m := range applied {
					cmd.Printf("%s\t%s\n", m.Name, m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
				}
				cmd.Printf("%d migrations applied\n", len(applied))
				return nil
			})
		},
	}
}

func (c *cli) adminCommand() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	var in accounts.SignUpInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an approved administrator",
		Long: `Create an approved administrator account.

When --password is omitted the password is read from the first line of
standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(in.DisplayName) == "" {
				in.DisplayName = in.Username
			}
			if in.Password == "" {
				password, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				in.Password = password
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				user, err := rt.Services.Accounts.CreateAdmin(ctx, in)
				if err != nil {
					return err
				}
				cmd.Printf("created admin %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "Account email")
	create.Flags().StringVar(&in.Username, "username", "", "Account username")
	create.Flags().StringVar(&in.DisplayName, "display-name", "", "Display name")
	create.Flags().StringVar(&in.Password, "password", "", "Account password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("username")
	admin.AddCommand(create)
	return admin
}

func (c *cli) usersCommand() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage member accounts",
	}
	users.AddCommand(&cobra.Command{
		Use:   "approve <username|email>",
		Short: "Approve a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				user, err := rt.Services.Accounts.ApproveByLogin(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Printf("approved %s\n", user.Username)
				return nil
			})
		},
	})
	return users
}

func (c *cli) orphansCommand() *cobra.Command {
	orphans := &cobra.Command{
		Use:   "orphans",
		Short: "Find and remove unreferenced uploads",
	}
	orphans.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Report orphaned upload files and rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				report, err := rt.Services.Orphans.Scan(ctx, time.Now())
				if err != nil {
					return err
				}
				cmd.Printf("files: %d referenced: %d recent: %d\n", report.Files, report.Referenced, report.Recent)
				for _, f := range report.Orphans {
					cmd.Printf("orphan\t%s\t%s\n", f.Path, f.Size())
				}
				for _, row := range report.MissingRows {
					cmd.Printf("missing\t%s\n", row)
				}
				cmd.Printf("%d orphans (%s), %d rows without files\n", len(report.Orphans), report.OrphanSize(), len(report.MissingRows))
				return nil
			})
		},
	})

	var dryRun bool
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete orphaned upload files and rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				report, err := rt.Services.Orphans.Scan(ctx, time.Now())
				if err != nil {
					return err
				}
				result, err := rt.Services.Orphans.Clean(ctx, report, dryRun)
				if err != nil {
					return err
				}
				verb := "deleted"
				if result.DryRun {
					verb = "would delete"
				}
				cmd.Printf("%s %d files and %d rows, freeing %s\n", verb, result.DeletedFiles, result.DeletedRows, result.FreedSize())
				for _, skipped := range result.Skipped {
					cmd.Printf("skipped\t%s\n", skipped)
				}
				return nil
			})
		},
	}
	clean.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	orphans.AddCommand(clean)
	return orphans
}

func (c *cli) indexNowCommand() *cobra.Command {
	indexNow := &cobra.Command{
		Use:   "indexnow",
		Short: "Submit site URLs to IndexNow",
	}
	indexNow.AddCommand(&cobra.Command{
		Use:   "submit-all",
		Short: "Submit every sitemap URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				if rt.Services.IndexNow == nil {
					return errors.New("indexnow key is not configured")
				}
				count, err := rt.Services.Sitemap.SubmitAll(ctx, rt.Services.IndexNow)
				if err != nil {
					return fmt.Errorf("submit %d urls: %w", count, err)
				}
				cmd.Printf("submitted %d urls\n", count)
				return nil
			})
		},
	})
	return indexNow
}

func (c *cli) themeCommand() *cobra.Command {
	theme := &cobra.Command{
		Use:   "theme",
		Short: "Manage theme and menus",
	}
	theme.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace theme and menus from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return c.withRuntime(cmd, func(ctx context.Context, rt *siteserver.Runtime) error {
				if err := rt.Services.SiteConfig.ImportYAML(ctx, f); err != nil {
					return err
				}
				cmd.Printf("imported %s\n", args[0])
				return nil
			})
		},
	})
	return theme
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
