package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInProgress          = errors.New("request with the same idempotency key is in progress")
	ErrFingerprintMismatch = errors.New("idempotency key reused with a different request")
)

// Response - сохранённый ответ на первый запрос с данным ключом
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// record - значение ключа в redis. Pending=true, пока первый запрос выполняется.
type record struct {
	Pending     bool      `json:"pending,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Response    *Response `json:"response,omitempty"`
}

type Store struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewStore ttl - срок хранения готового ответа, pendingTTL - срок блокировки ключа выполняющимся запросом.
// Короткий pendingTTL не даёт ключу зависнуть, если процесс упал до Complete/Release.
func NewStore(rdb *redis.Client, ttl, pendingTTL time.Duration) *Store {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &Store{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL}
}

// Key ключи пользователей не пересекаются между собой
func (s *Store) Key(scope string, userID int64, key string) string {
	return fmt.Sprintf("idem:%s:%d:%s", scope, userID, key)
}

// Fingerprint хеш разобранного тела запроса: одинаковые по смыслу запросы дают один отпечаток
// независимо от пробелов и порядка полей в исходном JSON.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode request fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Reserve занимает ключ.
// nil, nil - ключ свободен и теперь занят вызывающим;
// сохранённый ответ - запрос уже выполнен, его нужно повторить клиенту;
// ErrFingerprintMismatch - ключ уже использован с другим телом запроса;
// ErrInProgress - первый запрос ещё выполняется.
func (s *Store) Reserve(ctx context.Context, key, fingerprint string) (*Response, error) {
	pending, err := json.Marshal(record{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("encode pending marker: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// ключ успели освободить между SETNX и GET
		return s.Reserve(ctx, key, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	switch {
	case rec.Fingerprint != fingerprint:
		return nil, ErrFingerprintMismatch
	case rec.Pending || rec.Response == nil:
		return nil, ErrInProgress
	}
	return rec.Response, nil
}

// Complete сохраняет ответ для повторов на полный ttl.
func (s *Store) Complete(ctx context.Context, key, fingerprint string, resp Response) error {
	data, err := json.Marshal(record{Fingerprint: fingerprint, Response: &resp})
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Release освобождает ключ после неуспешного запроса, чтобы клиент мог повторить попытку.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
