package redis

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const ticketPrefix = "sigsecure:download:"

var ErrTicketNotFound = errors.New("download ticket not found")

// IRedis stores short-lived download tickets that map a document ID to the
// redacted file on disk.
type IRedis interface {
	SetTicket(ctx context.Context, documentID string, path string, expiration time.Duration) error
	GetTicket(ctx context.Context, documentID string) (string, error)
	DeleteTicket(ctx context.Context, documentID string) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(log *logrus.Logger) IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	client := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDRESS"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	return NewWithClient(client, log)
}

func NewWithClient(client *redis.Client, log *logrus.Logger) IRedis {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithFields(logrus.Fields{
			"addr":  client.Options().Addr,
			"error": err.Error(),
		}).Error("Failed to connect to Redis")
	} else {
		log.WithField("addr", client.Options().Addr).Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

func (r *redisClient) SetTicket(ctx context.Context, documentID string, path string, expiration time.Duration) error {
	if err := r.client.Set(ctx, ticketPrefix+documentID, path, expiration).Err(); err != nil {
		r.log.WithFields(logrus.Fields{
			"document_id": documentID,
			"error":       err.Error(),
		}).Error("Error setting download ticket")
		return err
	}
	return nil
}

func (r *redisClient) GetTicket(ctx context.Context, documentID string) (string, error) {
	val, err := r.client.Get(ctx, ticketPrefix+documentID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTicketNotFound
	} else if err != nil {
		r.log.WithFields(logrus.Fields{
			"document_id": documentID,
			"error":       err.Error(),
		}).Error("Error getting download ticket")
		return "", err
	}
	return val, nil
}

func (r *redisClient) DeleteTicket(ctx context.Context, documentID string) error {
	return r.client.Del(ctx, ticketPrefix+documentID).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
