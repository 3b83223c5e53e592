package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-notice-harvester/internal/config"
	"github.com/samvad-hq/samvad-notice-harvester/internal/crawler"
	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/logger"
	"github.com/samvad-hq/samvad-notice-harvester/internal/render"
	"github.com/samvad-hq/samvad-notice-harvester/internal/storage"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/publishers"
)

// Harvester represents the notice harvester runtime. It owns the store, the
// publishers fanout and the crawler service, and runs boards once or on a schedule.
type Harvester struct {
	cfg          *config.Config
	boards       []boards.Board
	fanout       *publishers.Fanout
	crawlService *crawler.Service
	log          logger.Logger
	store        storage.Store
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	boardList, err := loadBoards(cfg)
	if err != nil {
		return nil, err
	}
	boardIDs := make([]string, 0, len(boardList))
	for _, b := range boardList {
		boardIDs = append(boardIDs, b.ID)
	}
	log.InfoObj("boards loaded", "boards_meta", map[string]any{
		"count": len(boardIDs),
		"ids":   boardIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(ctx, storage.Options{
		Type: cfg.StorageType,
		Postgres: storage.PostgresConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		},
		Table:       cfg.NoticesTable,
		AutoMigrate: cfg.AutoMigrate,
		BBoltPath:   cfg.BBoltPath,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":         cfg.StorageType,
		"table":        cfg.NoticesTable,
		"path":         cfg.BBoltPath,
		"auto_migrate": cfg.AutoMigrate,
	})

	crawlService := crawler.NewService(
		newBrowser(cfg),
		store,
		newFanoutNotifier(fanout, log),
		log,
		crawler.Options{PersistWorkers: cfg.PersistWorkers, PersistTimeout: cfg.PersistTimeout},
	)

	return &Harvester{
		cfg:          cfg,
		boards:       boardList,
		fanout:       fanout,
		crawlService: crawlService,
		log:          log,
		store:        store,
	}, nil
}

// loadBoards returns the ad-hoc target board when a URL is configured, else the registry.
func loadBoards(cfg *config.Config) ([]boards.Board, error) {
	if cfg.TargetURL != "" {
		b, err := adhocBoard(cfg.TargetURL)
		if err != nil {
			return nil, err
		}
		return []boards.Board{b}, nil
	}

	reg, err := boards.LoadRegistry(cfg.BoardsFile)
	if err != nil {
		return nil, fmt.Errorf("load boards registry: %w", err)
	}
	return reg.All(), nil
}

func adhocBoard(rawURL string) (boards.Board, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return boards.Board{}, fmt.Errorf("parse target url: %w", err)
	}
	id := u.Hostname()
	if id == "" {
		id = "adhoc"
	}
	b := boards.Sanitize(boards.Board{ID: id, URL: u.String()})
	if err := boards.Validate(b); err != nil {
		return boards.Board{}, fmt.Errorf("target url: %w", err)
	}
	return b, nil
}

// buildFanout loads publishers when a file is configured. Without one the fanout is empty.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		log.InfoObj("no publishers file configured; events disabled", "publishers_meta", map[string]any{"count": 0})
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

func newBrowser(cfg *config.Config) render.Browser {
	opts := render.Options{
		Timeout:  cfg.RenderTimeout,
		Insecure: cfg.InsecureTransport,
		Headless: cfg.Headless,
	}
	if cfg.RendererType == "static" {
		client := httpclient.NewRestyClient(httpclient.Options{
			Timeout:  cfg.RenderTimeout,
			Insecure: cfg.InsecureTransport,
		})
		return render.NewStaticBrowser(client, opts)
	}
	return render.NewChromeBrowser(opts)
}

// Boards returns the boards this harvester crawls.
func (h *Harvester) Boards() []boards.Board {
	if h == nil {
		return nil
	}
	return append([]boards.Board(nil), h.boards...)
}

// RunOnce crawls every board a single time.
func (h *Harvester) RunOnce(ctx context.Context) ([]domain.RunResult, error) {
	if h == nil || h.crawlService == nil {
		return nil, fmt.Errorf("harvester is not initialized")
	}
	return h.crawlService.RunAll(ctx, h.boards)
}

// Close releases the store and any publisher connections.
func (h *Harvester) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err.Error())
			errs = append(errs, err)
		}
	}
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publishers close failed", "error", err.Error())
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
