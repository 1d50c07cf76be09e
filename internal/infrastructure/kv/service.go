package kv

import (
	"fmt"

	"github.com/ark-network/noted/internal/core/ports"
	badgerkv "github.com/ark-network/noted/internal/infrastructure/kv/badger"
	inmemorykv "github.com/ark-network/noted/internal/infrastructure/kv/inmemory"
	rediskv "github.com/ark-network/noted/internal/infrastructure/kv/redis"
)

var storeTypes = map[string]func(...interface{}) (ports.KVStore, error){
	"badger":   badgerkv.NewStore,
	"redis":    rediskv.NewStore,
	"inmemory": inmemorykv.NewStore,
}

func NewStore(storeType string, config ...interface{}) (ports.KVStore, error) {
	factory, ok := storeTypes[storeType]
	if !ok {
		return nil, fmt.Errorf("invalid kv store type: %s", storeType)
	}
	store, err := factory(config...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s kv store: %w", storeType, err)
	}
	return store, nil
}
