package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/contestant-voting-client/config"
	"github.com/saxenaaman628/contestant-voting-client/internal/api"
	"github.com/saxenaaman628/contestant-voting-client/internal/controller"
	domainerrors "github.com/saxenaaman628/contestant-voting-client/internal/domain/errors"
	"github.com/saxenaaman628/contestant-voting-client/internal/eligibility"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/redis"
	redishandler "github.com/saxenaaman628/contestant-voting-client/internal/redisHandler"
	"github.com/saxenaaman628/contestant-voting-client/internal/schedule"
	"github.com/saxenaaman628/contestant-voting-client/internal/session"
	"github.com/saxenaaman628/contestant-voting-client/internal/stats"
	"github.com/saxenaaman628/contestant-voting-client/internal/transport"
)

func main() {
	voteFor := flag.String("vote", "", "contestant id to vote for")
	assumeYes := flag.Bool("yes", false, "vote without asking for confirmation")
	watch := flag.Bool("watch", true, "keep running and log live updates")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := session.Resume(cfg.SessionTokenFile, cfg.JWTSecret, cfg.SessionTTL, time.Now(), logger)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	}

	client := api.New(cfg.APIBaseURL, cfg.APITimeout,
		api.WithSessionID(sess.ID),
		api.WithLogger(logger),
	)

	push, err := pushTransport(cfg, rdb, logger)
	if err != nil {
		log.Fatalf("Invalid push transport: %v", err)
	}

	policy, err := schedule.NewPolicy(schedule.Config{
		OpenWeekday:  cfg.OpenWeekday,
		OpenHour:     cfg.OpenHour,
		CloseWeekday: cfg.CloseWeekday,
	})
	if err != nil {
		log.Fatalf("Invalid voting schedule: %v", err)
	}

	ctrl, err := controller.New(controller.Options{
		API:             client,
		Eligibility:     eligibilitySource(cfg, client, rdb, sess),
		Push:            push,
		Policy:          policy,
		Location:        cfg.Location,
		PollInterval:    cfg.PollingInterval,
		PollingFallback: cfg.EnablePollingFallback,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("Failed to create voting controller: %v", err)
	}
	defer ctrl.Dispose()

	ctrl.Subscribe(func(e controller.Event) { logEvent(logger, e) })

	if err := ctrl.Start(ctx); err != nil {
		logger.Warn("Failed to load voting data", "event", "voting_initial_load_failed", "error", err.Error())
	}
	printBoard(ctrl.Snapshot(), policy.Config())

	if *voteFor != "" {
		confirm := confirmOnTerminal
		if *assumeYes {
			confirm = func(models.Contestant) bool { return true }
		}
		printVoteResult(ctrl.RequestVote(ctx, *voteFor, confirm), ctrl.Snapshot())
	}

	if !*watch {
		return
	}
	<-ctx.Done()
	log.Println("Shutting down voting client")
}

func eligibilitySource(cfg config.Config, client *api.Client, rdb *goredis.Client, sess session.Session) eligibility.Source {
	if cfg.EligibilityMode == config.EligibilityDailyQuota {
		return eligibility.NewQuotaSource(client, cfg.DailyVoteQuota)
	}
	ttl := sess.Remaining(time.Now())
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		return eligibility.NewSessionSource(redishandler.NewSessionStore(rdb, ttl), sess.ID)
	case config.SessionStoreToken:
		return eligibility.NewSessionSource(session.NewTokenStore(cfg.SessionTokenFile, cfg.JWTSecret, nil), sess.ID)
	default:
		return eligibility.NewSessionSource(eligibility.NewMemoryStore(ttl, nil), sess.ID)
	}
}

func pushTransport(cfg config.Config, rdb *goredis.Client, logger *slog.Logger) (transport.Push, error) {
	switch cfg.PushTransport {
	case config.PushWebsocket:
		return transport.NewWebsocket(cfg.SocketURL, logger)
	case config.PushRedis:
		return transport.NewRedisPubSub(rdb, cfg.RedisChannel, logger), nil
	default:
		return transport.None{}, nil
	}
}

func logEvent(logger *slog.Logger, e controller.Event) {
	s := e.Snapshot
	switch e.Kind {
	case controller.EventContestants:
		attrs := []any{"event", "voting_board_updated", "total_votes", stats.FormatVotes(s.ServerTotalVotes)}
		if s.Leader != nil {
			attrs = append(attrs, "leader", s.Leader.Name, "leader_votes", stats.FormatVotes(s.Leader.Votes))
		}
		logger.Info("Vote counts updated", attrs...)
	case controller.EventEligibility:
		logger.Info(s.EligibilitySummary, "event", "voting_eligibility_updated")
	case controller.EventConnection:
		logger.Info("Connection mode changed", "event", "voting_connection_changed", "mode", string(s.Connection))
	case controller.EventWindow:
		logger.Debug(s.WindowMessage, "event", "voting_window_tick")
	}
}

func printBoard(s controller.Snapshot, cfg schedule.Config) {
	fmt.Println(s.WindowMessage)
	fmt.Printf("Voting: %s\n\n", cfg.Describe())
	if !s.Loaded {
		fmt.Println("Contestants unavailable, will retry.")
		return
	}
	for _, c := range s.Ranking {
		fmt.Printf("%2d. %-24s %10s votes %5.1f%%  [%s]\n", c.Rank, c.Name, stats.FormatVotes(c.Votes), c.VotePercentage, c.ID)
	}
	fmt.Printf("\nTotal votes: %s across %d contestants\n", stats.FormatVotes(s.ServerTotalVotes), s.TotalContestants)
	fmt.Println(s.EligibilitySummary)
}

func printVoteResult(err error, s controller.Snapshot) {
	var rejected *domainerrors.RejectedError
	switch {
	case err == nil:
		fmt.Println("Vote submitted successfully! " + s.EligibilitySummary)
	case errors.Is(err, domainerrors.ErrEligibilityNotPersisted):
		fmt.Println("Vote submitted, but it could not be saved for this session: " + err.Error())
	case errors.Is(err, domainerrors.ErrVoteCancelled):
		fmt.Println("Vote cancelled.")
	case errors.Is(err, domainerrors.ErrVotingClosed):
		fmt.Println("Voting is currently closed. " + s.WindowMessage)
	case errors.Is(err, domainerrors.ErrAlreadyVoted), errors.Is(err, domainerrors.ErrQuotaExhausted):
		fmt.Println(s.EligibilitySummary)
	case errors.As(err, &rejected):
		fmt.Println("Vote not accepted: " + rejected.Message)
	default:
		fmt.Printf("Failed to submit vote: %v\n", err)
	}
}

func confirmOnTerminal(c models.Contestant) bool {
	fmt.Printf("Vote for %s? [y/N] ", c.Name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
