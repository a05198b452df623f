package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error session not found")

// RedisSession holds the paper portfolios of non-authenticated visitors.
// A guest portfolio lives until migrated into a real ledger or expired.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func guestKey(sessionID string) string {
	return fmt.Sprintf("guest:%s", sessionID)
}

func (r *RedisSession) GetGuestPortfolio(ctx context.Context, sessionID string) (model.GuestPortfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, guestKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.GuestPortfolio{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.GuestPortfolio{}, err
	}

	portfolio := model.GuestPortfolio{}
	err = json.Unmarshal([]byte(res), &portfolio)
	if err != nil {
		slog.Error("can't unmarshall guest portfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.GuestPortfolio{}, errors.New("can't unmarshall guest portfolio")
	}

	return portfolio, nil
}

func (r *RedisSession) SetGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	portfolioJson, err := json.Marshal(portfolio)
	if err != nil {
		slog.Error("can't marshall guest portfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall guest portfolio")
	}

	_, err = r.redis.Set(ctx, guestKey(sessionID), portfolioJson, r.cfg.GuestSessionTTL).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (r *RedisSession) DeleteGuestPortfolio(ctx context.Context, sessionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	_, err := r.redis.Del(ctx, guestKey(sessionID)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
