package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"anyvidow/client/internal/client"
	"anyvidow/client/internal/config"
	"anyvidow/client/internal/presenter"
	"anyvidow/client/internal/repository"
	"anyvidow/client/internal/session"
	"anyvidow/client/internal/stream"
)

func main() {
	// 1. 解析命令行参数
	var (
		configPath   = flag.String("config", "config/config.yaml", "path to config file")
		mediaURL     = flag.String("url", "", "media or playlist URL")
		formatID     = flag.String("format", "", "format id for single video download")
		downloadType = flag.String("type", "video", "download type: video | audio")
		quality      = flag.String("quality", "", "playlist quality, e.g. 1080")
		start        = flag.Int("start", 1, "playlist range start (1-based)")
		end          = flag.Int("end", 0, "playlist range end (inclusive)")
	)
	flag.Parse()

	// 2. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. 初始化日志
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting AnyviDow client", zap.String("server", cfg.Server.BaseURL))

	// 4. 初始化下载历史仓储
	history, cleanup := initHistory(cfg, logger)
	defer cleanup()

	// 5. 装配客户端与会话依赖
	apiClient := client.NewAPIClient(cfg.Server.BaseURL, cfg.Server.GetRequestTimeout(),
		cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
	fileClient := client.NewFileClient(cfg.Server.BaseURL, cfg.Download.OutputDir,
		cfg.Download.BufferSize, logger)

	deps := session.Deps{
		Opener:      initOpener(cfg, logger),
		Canceller:   apiClient,
		History:     history,
		Presenter:   presenter.NewConsole(),
		Navigator:   fileClient,
		Tracker:     session.NewTracker(),
		Logger:      logger,
		SettleDelay: cfg.Download.GetSettleDelay(),
	}

	// 6. Ctrl+C触发取消
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. 分发命令
	if args := flag.Args(); len(args) > 0 && args[0] == "history" {
		if err := runHistory(ctx, deps, apiClient, args[1:]); err != nil {
			logger.Fatal("History command failed", zap.Error(err))
		}
		return
	}

	if *mediaURL == "" {
		fmt.Fprintln(os.Stderr, "usage: anyvidow -url <media url> [-format id] [-type video|audio]")
		fmt.Fprintln(os.Stderr, "       anyvidow -url <playlist url> [-quality 1080] [-start n] [-end n]")
		fmt.Fprintln(os.Stderr, "       anyvidow history [list|clear|remove <index>|redownload <index>]")
		os.Exit(2)
	}

	if err := runDownload(ctx, deps, apiClient, *mediaURL, *formatID, *downloadType, *quality, *start, *end); err != nil {
		logger.Fatal("Download failed", zap.Error(err))
	}

	logger.Info("Done")
}

// runDownload 查询媒体信息并按类型运行对应的下载会话
func runDownload(ctx context.Context, deps session.Deps, api *client.APIClient,
	mediaURL, formatID, downloadType, quality string, start, end int) error {

	// 1. 查询媒体信息,按type字段判别
	info, err := api.FetchInfo(ctx, mediaURL)
	if err != nil {
		return fmt.Errorf("failed to fetch media info: %w", err)
	}

	// 2. 创建会话控制器
	var ctrl *session.Controller
	if info.IsPlaylist() {
		if end == 0 {
			end = info.Playlist.VideoCount
		}
		ctrl, err = session.NewPlaylist(deps, info.Playlist, quality, start, end)
		if err != nil {
			return err
		}
	} else {
		if formatID == "" {
			if downloadType == "audio" {
				formatID = info.Video.BestAudioID
			} else if len(info.Video.VideoFormats) > 0 {
				formatID = info.Video.VideoFormats[0].FormatID
			}
		}
		ctrl = session.NewSingle(deps, info.Video, formatID, downloadType)
	}

	// 3. 运行到会话结束
	return ctrl.Run(ctx)
}

// runHistory 下载历史子命令: list | clear | remove <index> | redownload <index>
func runHistory(ctx context.Context, deps session.Deps, api *client.APIClient, args []string) error {
	history := deps.History

	action := "list"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "list":
		entries, err := history.List(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No download history.")
			return nil
		}
		for i, e := range entries {
			fmt.Printf("%3d. [%s] %s\n     %s (%s)\n",
				i, e.Platform, e.Title, e.OriginalURL, e.Date.Format("2006-01-02 15:04"))
		}
		return nil

	case "clear":
		return history.Clear(ctx)

	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: history remove <index>")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index: %s", args[1])
		}
		return history.RemoveAt(ctx, index)

	case "redownload":
		if len(args) < 2 {
			return fmt.Errorf("usage: history redownload <index>")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index: %s", args[1])
		}
		entries, err := history.List(ctx)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(entries) {
			return fmt.Errorf("index out of range: %d", index)
		}
		// 按存档的原始地址重新走一遍完整下载流程
		return runDownload(ctx, deps, api, entries[index].OriginalURL, "", "video", "", 1, 0)

	default:
		return fmt.Errorf("unknown history action: %s", action)
	}
}

// newLogger 按配置级别创建日志器
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initOpener 按传输模式创建进度通道客户端
func initOpener(cfg *config.Config, logger *zap.Logger) stream.Opener {
	if cfg.Transport.Mode == "websocket" {
		return stream.NewWSClient(cfg.Server.BaseURL, cfg.Transport.WSPath, logger)
	}
	return stream.NewSSEClient(cfg.Server.BaseURL, logger)
}

// initHistory 按配置后端创建历史仓储
func initHistory(cfg *config.Config, logger *zap.Logger) (repository.HistoryStore, func()) {
	if cfg.History.Backend == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.History.Redis.Addr,
			Password: cfg.History.Redis.Password,
			DB:       cfg.History.Redis.DB,
			PoolSize: cfg.History.Redis.PoolSize,
		})

		// 测试 Redis 连接
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Failed to connect to Redis, falling back to file history", zap.Error(err))
			redisClient.Close()
			return repository.NewFileHistoryRepository(cfg.History.Path), func() {}
		}

		logger.Info("✓ Connected to Redis")
		return repository.NewRedisHistoryRepository(redisClient), func() { redisClient.Close() }
	}

	return repository.NewFileHistoryRepository(cfg.History.Path), func() {}
}
