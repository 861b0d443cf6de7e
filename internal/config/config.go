package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database   *dbConfig
	Service    *svcConfig
	Storage    *storageConfig
	Ipfs       *ipfsConfig
	Vector     *vectorConfig
	Ledger     *ledgerConfig
	Classifier *classifierConfig
	Embedding  *embeddingConfig
	Agent      *agentConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"realia"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"REALIA_ADDRESS" default:":3443"`
	MetricsAddress  string   `envconfig:"REALIA_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string   `envconfig:"REALIA_BASE_URL" default:"http://localhost:3443"`
	LogLevel        string   `envconfig:"REALIA_LOG_LEVEL" default:"info"`
	AllowedOrigins  []string `envconfig:"REALIA_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxUploadSize   int64    `envconfig:"REALIA_MAX_UPLOAD_SIZE" default:"33554432"`
	MigrationFolder string   `envconfig:"REALIA_MIGRATIONS_FOLDER" default:""`
	// PathPrefix is stripped from incoming paths when a gateway forwards them unchanged.
	PathPrefix string `envconfig:"REALIA_PATH_PREFIX" default:""`
	Auth       Auth
	TLS        TLS
}

type TLS struct {
	// Mode is "none", "selfsigned" or "files".
	Mode     string   `envconfig:"REALIA_TLS_MODE" default:"none"`
	CertFile string   `envconfig:"REALIA_TLS_CERT_FILE" default:""`
	KeyFile  string   `envconfig:"REALIA_TLS_KEY_FILE" default:""`
	Hosts    []string `envconfig:"REALIA_TLS_HOSTS" default:"localhost,127.0.0.1"`
}

type Auth struct {
	AuthenticationType string        `envconfig:"REALIA_AUTH" default:"session"`
	JwtSecret          string        `envconfig:"REALIA_JWT_SECRET" default:""`
	SessionTTL         time.Duration `envconfig:"REALIA_SESSION_TTL" default:"1h"`
	SecureCookie       bool          `envconfig:"REALIA_SECURE_COOKIE" default:"true"`
	// DevWallet is the identity injected when authentication is disabled.
	DevWallet string `envconfig:"REALIA_DEV_WALLET" default:"0x0000000000000000000000000000000000000001"`
}

type storageConfig struct {
	// Type selects the blob store: "s3" or "memory".
	Type       string        `envconfig:"REALIA_S3_TYPE" default:"s3"`
	Endpoint   string        `envconfig:"REALIA_S3_ENDPOINT" default:"localhost:9000"`
	Bucket     string        `envconfig:"REALIA_S3_BUCKET" default:"realia"`
	AccessKey  string        `envconfig:"REALIA_S3_ACCESS_KEY" default:""`
	SecretKey  string        `envconfig:"REALIA_S3_SECRET_KEY" default:""`
	Region     string        `envconfig:"REALIA_S3_REGION" default:""`
	UseSSL     bool          `envconfig:"REALIA_S3_USE_SSL" default:"false"`
	KeyPrefix  string        `envconfig:"REALIA_S3_KEY_PREFIX" default:"token-images"`
	PresignTTL time.Duration `envconfig:"REALIA_S3_PRESIGN_TTL" default:"24h"`
}

type ipfsConfig struct {
	// Type selects the content-addressed store: "pinata" or "memory".
	Type       string        `envconfig:"REALIA_IPFS_TYPE" default:"pinata"`
	PinataJWT  string        `envconfig:"REALIA_PINATA_JWT" default:""`
	PinataURL  string        `envconfig:"REALIA_PINATA_URL" default:"https://uploads.pinata.cloud"`
	GatewayURL string        `envconfig:"REALIA_IPFS_GATEWAY_URL" default:"https://ipfs.io/ipfs"`
	Timeout    time.Duration `envconfig:"REALIA_IPFS_TIMEOUT" default:"60s"`
}

type vectorConfig struct {
	// Type selects the index: "qdrant" or "memory".
	Type               string  `envconfig:"REALIA_VECTOR_TYPE" default:"qdrant"`
	Host               string  `envconfig:"REALIA_QDRANT_HOST" default:"localhost"`
	Port               int     `envconfig:"REALIA_QDRANT_PORT" default:"6334"`
	ApiKey             string  `envconfig:"REALIA_QDRANT_API_KEY" default:""`
	UseTLS             bool    `envconfig:"REALIA_QDRANT_USE_TLS" default:"false"`
	Collection         string  `envconfig:"REALIA_QDRANT_COLLECTION" default:"realia"`
	Dimension          uint64  `envconfig:"REALIA_QDRANT_DIMENSION" default:"512"`
	TopK               uint64  `envconfig:"REALIA_QDRANT_TOP_K" default:"5"`
	HnswEf             uint64  `envconfig:"REALIA_QDRANT_HNSW_EF" default:"128"`
	DuplicateThreshold float32 `envconfig:"REALIA_DUPLICATE_THRESHOLD" default:"0.94"`
}

type ledgerConfig struct {
	// Type selects the ledger: "evm" or "memory".
	Type           string        `envconfig:"REALIA_LEDGER_TYPE" default:"evm"`
	RPCURL         string        `envconfig:"REALIA_RPC_URL" default:"http://localhost:8545"`
	ChainID        int64         `envconfig:"REALIA_CHAIN_ID" default:"421614"`
	PrivateKey     string        `envconfig:"REALIA_WALLET_KEY" default:""`
	NFTAddress     string        `envconfig:"REALIA_NFT_CONTRACT_ADDRESS" default:""`
	FactoryAddress string        `envconfig:"REALIA_FACTORY_CONTRACT_ADDRESS" default:""`
	ReceiptTimeout time.Duration `envconfig:"REALIA_RECEIPT_TIMEOUT" default:"2m"`
	LogsFromBlock  uint64        `envconfig:"REALIA_LOGS_FROM_BLOCK" default:"0"`
}

type classifierConfig struct {
	URL     string        `envconfig:"REALIA_CLASSIFIER_URL" default:"https://api.aiornot.com/v2/image/sync"`
	ApiKey  string        `envconfig:"REALIA_CLASSIFIER_API_KEY" default:""`
	Timeout time.Duration `envconfig:"REALIA_CLASSIFIER_TIMEOUT" default:"60s"`
}

type embeddingConfig struct {
	URL     string        `envconfig:"REALIA_EMBEDDING_URL" default:"http://localhost:5004/get_image_embedding"`
	Timeout time.Duration `envconfig:"REALIA_EMBEDDING_TIMEOUT" default:"30s"`
}

type agentConfig struct {
	UpdateInterval    time.Duration `envconfig:"REALIA_AGENT_UPDATE_INTERVAL" default:"5s"`
	Jitter            time.Duration `envconfig:"REALIA_AGENT_JITTER" default:"30ms"`
	VerifiedThreshold float32       `envconfig:"REALIA_AGENT_VERIFIED_THRESHOLD" default:"0.95"`
	ModifiedThreshold float32       `envconfig:"REALIA_AGENT_MODIFIED_THRESHOLD" default:"0.75"`
	MetricsAddress    string        `envconfig:"REALIA_AGENT_METRICS_ADDRESS" default:":8081"`
}

// New returns the process-wide configuration, reading the environment once.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg, err := NewDefault()
		if err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault reads a fresh configuration from the environment without caching it.
func NewDefault() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
