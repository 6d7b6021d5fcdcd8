package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// StorageConfig drives the optional published-cover bucket.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	AccessKey    string
	SecretKey    string
	BucketCovers string
	UseSSL       bool
	Region       string
}

// QualityConfig holds the high-quality thresholds.
type QualityConfig struct {
	MinHeight int
	MinWidth  int
	MinSizeKB int
}

// ArtworkConfig holds crop and watermark layout numbers.
type ArtworkConfig struct {
	PosterCropRatio  float64 // target height/width for cropped posters
	ScaleRatio       int     // badge height = image height / ScaleRatio
	HorizontalOffset int
	VerticalOffset   int
	Spacing          int
	JPEGQuality      int
	WatermarkTargets []string // artifact kinds stamped automatically
	AssetDir         string   // badge asset files, <variant>.png
	LatestCovers     int      // published-cover retention
}

// CatalogConfig points at the external candidate lookup.
type CatalogConfig struct {
	BaseURL   string
	ImageBase string
	Timeout   time.Duration
	UserAgent string
}

// LinkCacheConfig tunes URL verification and verdict retention.
type LinkCacheConfig struct {
	CheckTimeout time.Duration
	ValidTTL     time.Duration
	InvalidTTL   time.Duration
	FailureTTL   time.Duration // transient errors retry sooner
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Quality          QualityConfig
	Artwork          ArtworkConfig
	Catalog          CatalogConfig
	LinkCache        LinkCacheConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("ARTKEEPER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "60s") // composite is synchronous
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucketcovers", "artkeeper-covers")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("quality.minheight", 800)
	v.SetDefault("quality.minwidth", 450)
	v.SetDefault("quality.minsizekb", 50)

	v.SetDefault("artwork.postercropratio", 1.415)
	v.SetDefault("artwork.scaleratio", 12)
	v.SetDefault("artwork.horizontaloffset", 12)
	v.SetDefault("artwork.verticaloffset", 6)
	v.SetDefault("artwork.spacing", 6)
	v.SetDefault("artwork.jpegquality", 95)
	v.SetDefault("artwork.watermarktargets", []string{"poster", "thumb"})
	v.SetDefault("artwork.assetdir", "./assets")
	v.SetDefault("artwork.latestcovers", 24)

	v.SetDefault("catalog.baseurl", "https://www.avbase.net")
	v.SetDefault("catalog.imagebase", "https://awsimgsrc.dmm.co.jp/pics_dig/digital/video")
	v.SetDefault("catalog.timeout", "15s")
	v.SetDefault("catalog.useragent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")

	v.SetDefault("linkcache.checktimeout", "4s")
	v.SetDefault("linkcache.validttl", "24h")
	v.SetDefault("linkcache.invalidttl", "1h")
	v.SetDefault("linkcache.failurettl", "5m")
}
