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

const provenanceRecordVersion1 = 1

// provenanceStore holds one-shot navigation markers: "the previous page
// legitimately completed step N". A marker is keyed by client context, tagged
// with the emitting stage, and consumed atomically on first read, so it
// admits exactly one navigation and cannot be forged by writing the durable
// authenticated flag.
type provenanceStore struct {
	redis  *redis.Client
	prefix string
}

func newProvenanceStore(redisClient *redis.Client, cfg ProvenanceConfig) *provenanceStore {
	return &provenanceStore{
		redis:  redisClient,
		prefix: cfg.RedisPrefix,
	}
}

func (s *provenanceStore) key(clientID string) string {
	return s.prefix + ":" + clientID
}

// Emit records a marker for the client's next navigation, replacing any
// marker a previous step left unconsumed. Navigation markers get a short
// ttl; the profile-completion gate gets the session ttl so a slow form does
// not lock its owner out.
func (s *provenanceStore) Emit(ctx context.Context, clientID string, stage Stage, name string, ttl time.Duration) error {
	if !stage.Valid() {
		return fmt.Errorf("emit provenance: invalid stage %v", stage)
	}
	encoded, err := encodeProvenance(stage, name)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(clientID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Check reports whether the client currently holds a marker for the wanted
// stage without consuming it. Page entry uses this; step completion consumes.
func (s *provenanceStore) Check(ctx context.Context, clientID string, want Stage) (string, error) {
	if !want.Valid() {
		return "", fmt.Errorf("check provenance: invalid stage %v", want)
	}

	data, err := s.redis.Get(ctx, s.key(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrProvenanceMismatch
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stage, name, err := decodeProvenance(data)
	if err != nil || stage != want {
		return "", ErrProvenanceMismatch
	}
	return name, nil
}

// Consume atomically removes the client's marker and checks it against the
// stage the landing page requires. Absence, a stale payload, or a stage
// mismatch all map to ErrProvenanceMismatch; the marker is gone either way.
func (s *provenanceStore) Consume(ctx context.Context, clientID string, want Stage) (string, error) {
	if !want.Valid() {
		return "", fmt.Errorf("consume provenance: invalid stage %v", want)
	}

	data, err := s.redis.GetDel(ctx, s.key(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrProvenanceMismatch
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stage, name, err := decodeProvenance(data)
	if err != nil {
		return "", ErrProvenanceMismatch
	}
	if stage != want {
		return "", ErrProvenanceMismatch
	}
	return name, nil
}

func encodeProvenance(stage Stage, name string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(provenanceRecordVersion1)
	buf.WriteByte(byte(stage))

	if len(name) > 65535 {
		return nil, errors.New("provenance name too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(name))); err != nil {
		return nil, err
	}
	buf.WriteString(name)

	return buf.Bytes(), nil
}

func decodeProvenance(data []byte) (Stage, string, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return 0, "", err
	}
	if version != provenanceRecordVersion1 {
		return 0, "", errors.New("invalid provenance record version")
	}

	rawStage, err := reader.ReadByte()
	if err != nil {
		return 0, "", err
	}
	stage := Stage(rawStage)
	if !stage.Valid() {
		return 0, "", errors.New("invalid provenance stage")
	}

	var nameLen uint16
	if err := binary.Read(reader, binary.BigEndian, &nameLen); err != nil {
		return 0, "", err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(reader, name); err != nil {
		return 0, "", err
	}

	return stage, string(name), nil
}
