package core

import (
	"bytes"
	"encoding/gob"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// GetSeed receives a seed value for random number generation from the VISUALWORDS_SEED environment variable.
func GetSeed() int64 {
	seedStr := os.Getenv("VISUALWORDS_SEED")
	if seedStr != "" {
		if seed, err := strconv.ParseInt(seedStr, 10, 64); err == nil {
			log.Debug().Msgf("Using seed from VISUALWORDS_SEED value: %d", seed)
			return seed
		}
		log.Warn().Msgf("Failed to parse VISUALWORDS_SEED value: %s", seedStr)
	}

	seed := time.Now().UnixNano()
	log.Debug().Msgf("Using current time as seed: %d", seed)
	return seed
}

// SeedOr returns seed when it is set and GetSeed otherwise.
func SeedOr(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return GetSeed()
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
