package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["CELLROUTES_REDIS_ADDRESS"] != "" {
		address = env["CELLROUTES_REDIS_ADDRESS"]
	}

	if env["CELLROUTES_REDIS_PASSWORD"] != "" {
		password = env["CELLROUTES_REDIS_PASSWORD"]
	}

	if env["CELLROUTES_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["CELLROUTES_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	err := backoff.Retry(func() error {
		return Client.Ping(context.Background()).Err()
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient("cellroutes", Client, nil)
	if err != nil {
		return err
	}

	log.Info().Str("address", address).Msg("Connected to Redis")

	return nil
}
