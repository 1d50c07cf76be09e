package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ark-network/noted/internal/core/application"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/ark-network/noted/internal/infrastructure/db"
	"github.com/ark-network/noted/internal/infrastructure/indexstore"
	"github.com/ark-network/noted/internal/infrastructure/keyring"
	"github.com/ark-network/noted/internal/infrastructure/kv"
	scheduler "github.com/ark-network/noted/internal/infrastructure/scheduler/gocron"
	naclsealer "github.com/ark-network/noted/internal/infrastructure/sealer/nacl"
	"github.com/ark-network/noted/pkg/keylock"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedKVStores = supportedType{
		"badger":   {},
		"redis":    {},
		"inmemory": {},
	}
	supportedNetworks = supportedType{
		"mainnet": {},
		"testnet": {},
		"regtest": {},
	}
)

type Config struct {
	Datadir  string
	Network  string
	LogLevel int

	DbType          string
	DbDir           string
	KVType          string
	RedisUrl        string
	CacheSize       int
	LockTimeout     time.Duration
	MaxNotes        int
	SearchBudget    int
	TieBreak        string
	Owner           string
	OwnerKey        string `json:"-"`
	ReindexInterval time.Duration

	repo      ports.RepoManager
	kvStore   ports.KVStore
	keyring   ports.Keyring
	index     ports.IndexStore
	scheduler ports.SchedulerService
	svc       application.Service
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir         = "DATADIR"
	Network         = "NETWORK"
	LogLevel        = "LOG_LEVEL"
	DbType          = "DB_TYPE"
	KVType          = "KV_TYPE"
	RedisUrl        = "REDIS_URL"
	CacheSize       = "CACHE_SIZE"
	LockTimeout     = "LOCK_TIMEOUT"
	MaxNotes        = "MAX_NOTES"
	SearchBudget    = "SEARCH_BUDGET"
	TieBreak        = "TIE_BREAK"
	Owner           = "OWNER"
	OwnerKey        = "OWNER_KEY"
	ReindexInterval = "REINDEX_INTERVAL"

	defaultDatadir         = appDataDir()
	defaultNetwork         = "mainnet"
	defaultLogLevel        = 4
	defaultDbType          = "badger"
	defaultKVType          = "badger"
	defaultCacheSize       = 1024
	defaultLockTimeout     = time.Duration(0)
	defaultMaxNotes        = 4
	defaultSearchBudget    = 100000
	defaultTieBreak        = "high"
	defaultReindexInterval = time.Duration(0)
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("NOTED")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(KVType, defaultKVType)
	viper.SetDefault(CacheSize, defaultCacheSize)
	viper.SetDefault(LockTimeout, defaultLockTimeout)
	viper.SetDefault(MaxNotes, defaultMaxNotes)
	viper.SetDefault(SearchBudget, defaultSearchBudget)
	viper.SetDefault(TieBreak, defaultTieBreak)
	viper.SetDefault(ReindexInterval, defaultReindexInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	network := viper.GetString(Network)
	dbPath := filepath.Join(viper.GetString(Datadir), network, "db")

	return &Config{
		Datadir:         viper.GetString(Datadir),
		Network:         network,
		LogLevel:        viper.GetInt(LogLevel),
		DbType:          viper.GetString(DbType),
		DbDir:           dbPath,
		KVType:          viper.GetString(KVType),
		RedisUrl:        viper.GetString(RedisUrl),
		CacheSize:       viper.GetInt(CacheSize),
		LockTimeout:     viper.GetDuration(LockTimeout),
		MaxNotes:        viper.GetInt(MaxNotes),
		SearchBudget:    viper.GetInt(SearchBudget),
		TieBreak:        viper.GetString(TieBreak),
		Owner:           viper.GetString(Owner),
		OwnerKey:        viper.GetString(OwnerKey),
		ReindexInterval: viper.GetDuration(ReindexInterval),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedNetworks.supports(c.Network) {
		return fmt.Errorf("network not supported, please select one of: %s", supportedNetworks)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedKVStores.supports(c.KVType) {
		return fmt.Errorf("kv store type not supported, please select one of: %s", supportedKVStores)
	}
	if c.KVType == "redis" && len(c.RedisUrl) <= 0 {
		return fmt.Errorf("missing redis url")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("invalid cache size, must be positive")
	}
	if c.MaxNotes <= 0 {
		return fmt.Errorf("invalid max notes, must be positive")
	}
	if c.SearchBudget <= 0 {
		return fmt.Errorf("invalid search budget, must be positive")
	}
	if c.LockTimeout < 0 || c.ReindexInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := application.ParseTieBreak(c.TieBreak); err != nil {
		return err
	}
	if len(c.OwnerKey) <= 0 {
		return fmt.Errorf("missing owner key")
	}

	if err := c.keyringService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) Keyring() ports.Keyring {
	return c.keyring
}

func (c *Config) keyringService() error {
	owner := c.Owner
	kp, err := keyring.FromHex(owner, c.OwnerKey)
	if err != nil {
		return fmt.Errorf("invalid owner key: %s", err)
	}
	if len(owner) <= 0 {
		kp.Owner = hex.EncodeToString(kp.PublicKey[:])
		c.Owner = kp.Owner
	}

	kr, err := keyring.New(kp)
	if err != nil {
		return err
	}
	c.keyring = kr
	return nil
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()
	logger.SetLevel(log.Level(c.LogLevel))

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) kvStoreService() error {
	var storeConfig []interface{}
	switch c.KVType {
	case "badger":
		logger := log.New()
		logger.SetLevel(log.Level(c.LogLevel))
		storeConfig = []interface{}{c.DbDir, logger}
	case "redis":
		storeConfig = []interface{}{c.RedisUrl}
	case "inmemory":
	default:
		return fmt.Errorf("unknown kv store type")
	}

	store, err := kv.NewStore(c.KVType, storeConfig...)
	if err != nil {
		return err
	}
	c.kvStore = store
	return nil
}

func (c *Config) indexStoreService() error {
	if c.keyring == nil {
		if err := c.keyringService(); err != nil {
			return err
		}
	}
	if err := c.kvStoreService(); err != nil {
		return err
	}

	store, err := indexstore.New(
		c.kvStore, naclsealer.NewSealer(), c.keyring, keylock.New(),
		indexstore.Config{
			Namespace:   c.Network,
			CacheSize:   c.CacheSize,
			LockTimeout: c.LockTimeout,
		},
	)
	if err != nil {
		_ = c.kvStore.Close()
		return err
	}
	c.index = store
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = scheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.indexStoreService(); err != nil {
		c.repo.Close()
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}

	tieBreak, err := application.ParseTieBreak(c.TieBreak)
	if err != nil {
		return err
	}

	svc, err := application.NewService(
		application.Config{
			Network: c.Network,
			Owner:   c.Owner,
			Defaults: application.SelectOptions{
				MaxNotes:     c.MaxNotes,
				SearchBudget: c.SearchBudget,
				TieBreak:     tieBreak,
			},
			ReindexInterval: c.ReindexInterval,
		},
		c.repo, c.index, c.keyring, c.scheduler,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".noted"
	}
	return filepath.Join(home, ".noted")
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
