package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/drujensen/tasktracker/internal/api"
	"github.com/drujensen/tasktracker/internal/cli"
	"github.com/drujensen/tasktracker/internal/domain/events"
	"github.com/drujensen/tasktracker/internal/domain/interfaces"
	"github.com/drujensen/tasktracker/internal/domain/services"
	"github.com/drujensen/tasktracker/internal/impl/config"
	"github.com/drujensen/tasktracker/internal/impl/database"
	"github.com/drujensen/tasktracker/internal/impl/logging"
	repositoriesMongo "github.com/drujensen/tasktracker/internal/impl/repositories/mongo"
	repositoriesMySQL "github.com/drujensen/tasktracker/internal/impl/repositories/mysql"
	"github.com/drujensen/tasktracker/internal/impl/schema"
	"github.com/drujensen/tasktracker/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

var (
	version = "unknown" // This should be set during build with -ldflags="-X main.version=1.0.0"
)

func main() {
	// Check version flag first
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version)
		os.Exit(0)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tasktracker [tui|serve] [--storage=type] [--config=path] [--env=path] [--init-config]\n")
		flag.PrintDefaults()
	}

	storage := flag.String("storage", "", "Storage type: file, mongo or mysql (overrides config)")
	configPath := flag.String("config", config.DefaultConfigPath(), "Path to the TOML config file")
	envFile := flag.String("env", ".env", "Path to a .env file")
	initConfig := flag.Bool("init-config", false, "Write the effective config to --config and exit")

	// Default mode is "console"
	modeStr := "console"

	// Check the first non-flag argument for the mode
	if len(os.Args) > 1 && (os.Args[1] == "serve" || os.Args[1] == "tui") {
		modeStr = os.Args[1]
		os.Args = slices.Delete(os.Args, 1, 2)
	}

	// Parse the remaining arguments which are flags
	flag.Parse()

	logger, err := logging.NewLogger("warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath, *envFile, logger)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *storage != "" {
		cfg.Storage = *storage
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			flag.Usage()
			os.Exit(1)
		}
	}

	if cfg.LogLevel != "warn" {
		if logger, err = logging.NewLogger(cfg.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if *initConfig {
		if err := config.SaveConfig(cfg, *configPath, logger); err != nil {
			logger.Fatal("Failed to write config", zap.Error(err))
		}
		fmt.Println(*configPath)
		return
	}

	// The console reads stdin line by line and is left to the default
	// interrupt handling.
	ctx := context.Background()
	if modeStr != "console" {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("storage", cfg.Storage), zap.Error(err))
	}
	defer closeRepo()

	bus := events.NewBus()

	var out io.Writer = os.Stdout
	var status *tui.StatusLine
	if modeStr == "tui" {
		status = tui.NewStatusLine()
		out = status
	}

	opts := []services.Option{
		services.WithOutput(out),
		services.WithDataFile(cfg.DataFile),
		services.WithEvents(bus),
	}
	if repo != nil {
		opts = append(opts, services.WithRepository(repo))
	}
	if cfg.ValidateSchema {
		validator, err := schema.NewTaskFileValidator()
		if err != nil {
			logger.Fatal("Failed to compile task file schema", zap.Error(err))
		}
		opts = append(opts, services.WithValidator(validator))
	}

	taskManager := services.NewTaskManager(logger, opts...)

	switch modeStr {
	case "serve":
		server := api.NewServer(taskManager, bus, logger)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down server", zap.Error(err))
			}
		}()
		if err := server.Start(cfg.ListenAddr); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case "tui":
		model := tui.NewTUI(taskManager, bus, status, logger)
		defer model.Close()

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			logger.Fatal("TUI failed", zap.Error(err))
		}
	default:
		var cliOpts []cli.Option
		if repo == nil {
			cliOpts = append(cliOpts, cli.WithDiffPreview(cfg.DataFile))
		}
		if err := cli.NewCLI(taskManager, logger, cliOpts...).Run(ctx); err != nil {
			logger.Fatal("Console failed", zap.Error(err))
		}
	}
}

// openRepository connects the configured database backend. File storage
// needs no repository and returns nil.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (interfaces.TaskRepository, func(), error) {
	switch cfg.Storage {
	case config.StorageMongo:
		db, err := database.NewMongoDB(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Disconnect(context.Background()); err != nil {
				logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}
		return repositoriesMongo.NewMongoTaskRepository(db.Collection("tasks")), closeFn, nil

	case config.StorageMySQL:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := repositoriesMySQL.NewMySQLTaskRepository(connectCtx, cfg.MySQLDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close MySQL connection", zap.Error(err))
			}
		}
		return repo, closeFn, nil

	default:
		return nil, func() {}, nil
	}
}
