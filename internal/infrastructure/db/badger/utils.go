package badgerdb

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"
)

const (
	maxRetries = 5
	gcInterval = 30 * time.Minute
)

// holdStore is a badgerhold store whose value log GC stops on Close.
type holdStore struct {
	*badgerhold.Store
	quit chan struct{}
	done chan struct{}
}

func (s *holdStore) Close() error {
	if s.quit != nil {
		close(s.quit)
		<-s.done
	}
	return s.Store.Close()
}

func openStore(storeDir string, config ...interface{}) (*holdStore, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, storeDir)
	}
	return createDB(dir, logger)
}

func createDB(dbDir string, logger badger.Logger) (*holdStore, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	s := &holdStore{Store: db}
	if !isInMemory {
		s.quit = make(chan struct{})
		s.done = make(chan struct{})
		go s.runGC(logger)
	}
	return s, nil
}

func (s *holdStore) runGC(logger badger.Logger) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			if err := s.Badger().RunValueLogGC(0.5); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) && logger != nil {
				logger.Errorf("%s", err)
			}
		}
	}
}

func withRetry(fn func() error) error {
	err := fn()
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = fn()
		attempts++
	}
	return err
}
