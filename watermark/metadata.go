package watermark

import (
	"encoding/json"
	"github.com/gibson042/canonicaljson-go"
	"github.com/rideon/docguard/integrity"
	"github.com/ztrue/tracerr"
	"time"
)

const Purpose = "driver_registration"
const DefaultPlatform = "docguard"

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Metadata is embedded into watermarked documents. It never holds the submitter's email, only its hash.
type Metadata struct {
	SessionId string `json:"sessionId"`
	EmailHash string `json:"emailHash"`
	Timestamp string `json:"timestamp"`
	Purpose   string `json:"purpose"`
	Platform  string `json:"platform"`
}

func NewMetadata(sessionId string, email string, at time.Time, platform string) Metadata {
	if platform == "" {
		platform = DefaultPlatform
	}
	return Metadata{
		SessionId: sessionId,
		EmailHash: integrity.HashEmail(email),
		Timestamp: at.UTC().Format(TimestampFormat),
		Purpose:   Purpose,
		Platform:  platform,
	}
}

// Serialize returns the compact canonical JSON form of the metadata, with sorted keys.
func (m Metadata) Serialize() ([]byte, error) {
	serialized, err := canonicaljson.Marshal(m)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return serialized, nil
}

// Hash returns the hex SHA-256 of the serialized metadata.
func (m Metadata) Hash() (string, error) {
	serialized, err := m.Serialize()
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return integrity.Hash(serialized), nil
}

func ParseMetadata(serialized []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(serialized, &m); err != nil {
		return nil, tracerr.Wrap(ErrorInvalidMetadata.AddDetails(err.Error()))
	}
	return &m, nil
}

// ToBits expands data to 8 bits per byte, most significant bit first.
func ToBits(data []byte) []bool {
	bits := make([]bool, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, b&(1<<i) != 0)
		}
	}
	return bits
}

// FromBits is the inverse of ToBits. Trailing bits that do not fill a byte are dropped.
func FromBits(bits []bool) []byte {
	data := make([]byte, len(bits)/8)
	for i := range data {
		var b byte
		for _, bit := range bits[i*8 : i*8+8] {
			b <<= 1
			if bit {
				b |= 1
			}
		}
		data[i] = b
	}
	return data
}
