package models

import "time"

type Config struct {
	Debug   bool   `yaml:"debug" envconfig:"SPATOOLS_DEBUG"`
	SemVer  string `yaml:"semver" envconfig:"SPATOOLS_SEMVER" default:"0.1.0"`
	Contact string `yaml:"contact" envconfig:"SPATOOLS_SERVICE_CONTACT"`

	Api struct {
		Port                           string `yaml:"port" envconfig:"SPATOOLS_API_INTERNAL_PORT" default:"5000"`
		DataPath                       string `yaml:"dataPath" envconfig:"SPATOOLS_API_DATA_PATH" default:"/app/data"`
		BulkIndexingCap                int    `yaml:"bulkIndexingCap" envconfig:"SPATOOLS_API_BULK_INDEXING_CAP" default:"10000"`
		FileProcessingConcurrencyLevel int    `yaml:"fileProcessingConcurrencyLevel" envconfig:"SPATOOLS_API_FILE_PROC_CONC_LVL" default:"3"`
		QueryChunkSize                 int    `yaml:"queryChunkSize" envconfig:"SPATOOLS_API_QUERY_CHUNK_SIZE" default:"250"`
	} `yaml:"api"`

	Elasticsearch struct {
		Url      string `yaml:"url" envconfig:"SPATOOLS_ES_URL" default:"http://localhost:9200"`
		Username string `yaml:"username" envconfig:"SPATOOLS_ES_USERNAME"`
		Password string `yaml:"password" envconfig:"SPATOOLS_ES_PASSWORD"`
	} `yaml:"elasticsearch"`

	Calling struct {
		MinTotalDepth    int     `yaml:"minTotalDepth" envconfig:"SPATOOLS_CALL_MIN_TOTAL_DEPTH" default:"25"`
		AmbiguityQuality float64 `yaml:"ambiguityQuality" envconfig:"SPATOOLS_CALL_AMBIGUITY_QUALITY" default:"0.05"`
		DepthScale       float64 `yaml:"depthScale" envconfig:"SPATOOLS_CALL_DEPTH_SCALE" default:"1000"`
	} `yaml:"calling"`

	Filter struct {
		PeakTypes  []string `yaml:"peakTypes" envconfig:"SPATOOLS_FILTER_PEAK_TYPES" default:"bin"`
		PresetPath string   `yaml:"presetPath" envconfig:"SPATOOLS_FILTER_PRESET_PATH"`
		Workers    int      `yaml:"workers" envconfig:"SPATOOLS_FILTER_WORKERS" default:"4"`
	} `yaml:"filter"`

	ClickHouse struct {
		Enabled  bool   `yaml:"enabled" envconfig:"SPATOOLS_CLICKHOUSE_ENABLED"`
		Host     string `yaml:"host" envconfig:"SPATOOLS_CLICKHOUSE_HOST" default:"localhost"`
		Port     int    `yaml:"port" envconfig:"SPATOOLS_CLICKHOUSE_PORT" default:"9000"`
		Database string `yaml:"database" envconfig:"SPATOOLS_CLICKHOUSE_DATABASE" default:"spatools"`
		Username string `yaml:"username" envconfig:"SPATOOLS_CLICKHOUSE_USERNAME" default:"default"`
		Password string `yaml:"password" envconfig:"SPATOOLS_CLICKHOUSE_PASSWORD"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Enabled bool     `yaml:"enabled" envconfig:"SPATOOLS_KAFKA_ENABLED"`
		Brokers []string `yaml:"brokers" envconfig:"SPATOOLS_KAFKA_BROKERS" default:"localhost:9092"`
		Topic   string   `yaml:"topic" envconfig:"SPATOOLS_KAFKA_TOPIC" default:"spatools.calls"`
	} `yaml:"kafka"`

	Sanitation struct {
		Retention time.Duration `yaml:"retention" envconfig:"SPATOOLS_SANITATION_RETENTION" default:"24h"`
		Interval  time.Duration `yaml:"interval" envconfig:"SPATOOLS_SANITATION_INTERVAL" default:"1h"`
	} `yaml:"sanitation"`

	Log struct {
		Level  string `yaml:"level" envconfig:"SPATOOLS_LOG_LEVEL" default:"info"`
		Format string `yaml:"format" envconfig:"SPATOOLS_LOG_FORMAT" default:"json"`
	} `yaml:"log"`
}
