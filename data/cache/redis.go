package cache

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

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func portfolioKey(accountID int64) string {
	return fmt.Sprintf("portfolio:%d", accountID)
}

func (r *RedisCache) SetPortfolioSummary(ctx context.Context, accountID int64, summary model.PortfolioSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPortfolioSummary start", slog.String("rqID", rqID))

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error(
			"can't marshall summary in SetPortfolioSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("summary", summary),
		)
		return errors.New("can't marshall summary")
	}

	_, err = r.redis.Set(ctx, portfolioKey(accountID), summaryJson, r.cfg.Cache.PortfolioExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPortfolioSummary completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetPortfolioSummary(ctx context.Context, accountID int64) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPortfolioSummary start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, portfolioKey(accountID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Int64("accountID", accountID))
		}
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error(
			"can't unmarshall summary in GetPortfolioSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PortfolioSummary{}, errors.New("can't unmarshall summary")
	}

	slog.Debug("GetPortfolioSummary finished", slog.String("rqID", rqID))

	return summary, nil
}

func (r *RedisCache) FlushPortfolio(ctx context.Context, accountID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushPortfolio start", slog.String("rqID", rqID))

	_, err := r.redis.Del(ctx, portfolioKey(accountID)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Int64("accountID", accountID))
		return err
	}

	slog.Debug("FlushPortfolio completed", slog.String("rqID", rqID))

	return nil
}
