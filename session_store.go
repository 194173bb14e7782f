package careauth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationRecordVersion1 = 1

// verificationSession is the single explicit record behind an in-flight
// verification attempt, for both flows. The expiry instant is a field on the
// record and is checked on every read; the Redis TTL is only a janitor for
// records nobody reads again.
type verificationSession struct {
	Flow         Flow
	ClientID     string
	Phone        string
	Email        string
	FullName     string
	ChallengeRef string
	IssuedAt     int64
	ExpiresAt    int64
}

// verificationStore persists verification sessions keyed by opaque session
// ID, and keeps a per-client index so that at most one session is live per
// browser context: saving a session for a client deletes the previous one.
type verificationStore struct {
	redis  *redis.Client
	prefix string
}

func newVerificationStore(redisClient *redis.Client, prefix string) *verificationStore {
	return &verificationStore{redis: redisClient, prefix: prefix}
}

func (s *verificationStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *verificationStore) clientKey(clientID string) string {
	return s.prefix + ":cur:" + clientID
}

// Save stores a fresh session and repoints the client index at it. Any prior
// session for the same client is destroyed first.
func (s *verificationStore) Save(ctx context.Context, sessionID string, record *verificationSession, ttl time.Duration) error {
	encoded, err := encodeVerificationSession(record)
	if err != nil {
		return err
	}

	if record.ClientID != "" {
		prior, err := s.redis.Get(ctx, s.clientKey(record.ClientID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if prior != "" && prior != sessionID {
			if err := s.redis.Del(ctx, s.key(prior)).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		if err := s.redis.Set(ctx, s.clientKey(record.ClientID), sessionID, ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := s.redis.Set(ctx, s.key(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads a session and enforces freshness. A missing or undecodable
// record maps to ErrSessionNotFound; a stale one is deleted and maps to
// ErrSessionExpired.
func (s *verificationStore) Get(ctx context.Context, sessionID string) (*verificationSession, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	record, err := decodeVerificationSession(data)
	if err != nil {
		_, _ = s.redis.Del(ctx, s.key(sessionID)).Result()
		return nil, ErrSessionNotFound
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(sessionID)).Result()
		if record.ClientID != "" {
			_, _ = s.redis.Del(ctx, s.clientKey(record.ClientID)).Result()
		}
		return nil, ErrSessionExpired
	}
	return record, nil
}

// ReplaceChallengeRef swaps the held challenge reference in place. The
// record's expiry instant and remaining Redis TTL are deliberately
// preserved: resending a code does not restart the attempt clock.
func (s *verificationStore) ReplaceChallengeRef(ctx context.Context, sessionID, ref string) error {
	record, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	record.ChallengeRef = ref

	encoded, err := encodeVerificationSession(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sessionID), encoded, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete destroys a session and its client index entry. The boolean reports
// whether the session still existed, which lets confirm detect a concurrent
// terminal outcome.
func (s *verificationStore) Delete(ctx context.Context, sessionID, clientID string) (bool, error) {
	deleted, err := s.redis.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if clientID != "" {
		current, err := s.redis.Get(ctx, s.clientKey(clientID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if current == sessionID {
			if err := s.redis.Del(ctx, s.clientKey(clientID)).Err(); err != nil {
				return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	}
	return deleted > 0, nil
}

func encodeVerificationSession(record *verificationSession) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersion1)
	if !record.Flow.Valid() {
		return nil, errors.New("verification session has invalid flow")
	}
	buf.WriteByte(byte(record.Flow))

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ClientID, record.Phone, record.Email, record.FullName, record.ChallengeRef} {
		if len(field) > 65535 {
			return nil, errors.New("verification session field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeVerificationSession(data []byte) (*verificationSession, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersion1 {
		return nil, errors.New("invalid verification session version")
	}

	flow, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	record := &verificationSession{Flow: Flow(flow)}
	if !record.Flow.Valid() {
		return nil, errors.New("invalid verification session flow")
	}

	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.ClientID, &record.Phone, &record.Email, &record.FullName, &record.ChallengeRef} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in verification session")
	}
	return record, nil
}
