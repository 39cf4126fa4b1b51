package credential

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const recordVersionV1 = 1

var (
	// ErrNotFound is returned by Lookup for unknown usernames.
	ErrNotFound = errors.New("credential: record not found")
	// ErrDuplicate is returned by Insert when the username is already present.
	ErrDuplicate = errors.New("credential: username already exists")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("credential: store unavailable")
	// ErrInvalidRecord is returned for records missing a username or hash.
	ErrInvalidRecord = errors.New("credential: invalid record")
)

// Record is one registered account.
type Record struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store is the persistence contract consumed by the engine.
//
// Implementations must be safe for concurrent use and must make Insert an
// atomic check-then-act on the username.
type Store interface {
	Lookup(ctx context.Context, username string) (*Record, error)
	Insert(ctx context.Context, record Record) error
	Exists(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]Record, error)
}

func (r Record) validate() error {
	if r.Username == "" || r.PasswordHash == "" {
		return ErrInvalidRecord
	}
	if len(r.Username) > 0xFFFF || len(r.PasswordHash) > 0xFFFF {
		return ErrInvalidRecord
	}
	return nil
}

func encodeRecord(record Record) ([]byte, error) {
	if err := record.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	for _, field := range []string{record.Username, record.PasswordHash} {
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("credential: unknown record version")
	}

	var created int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return nil, err
	}

	fields := make([]string, 2)
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		fields[i] = string(raw)
	}

	return &Record{
		Username:     fields[0],
		PasswordHash: fields[1],
		CreatedAt:    time.Unix(0, created).UTC(),
	}, nil
}
