package constants

import "time"

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

const (
	// ObjectPage and ObjectInstagram are the top-level "object" discriminators
	// Meta sends for each platform.
	ObjectPage      = "page"
	ObjectInstagram = "instagram"
)

const (
	HubModeSubscribe = "subscribe"
	SignatureHeader  = "X-Hub-Signature-256"
	SignaturePrefix  = "sha256="
)

// BusinessSenderID is the senderId recorded for messages sent by the connected
// business account.
const BusinessSenderID = "business"

const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendMongoDB  = "mongodb"
)

const (
	CredentialsBackendConfig = "config"
	CredentialsBackendRedis  = "redis"
)

const (
	CacheKeyPrefixMessage      = "inbox:msg:"
	CacheKeyPrefixConversation = "inbox:conv:"
	CacheKeyMessageIndex       = "inbox:msg_index"
	CacheKeyMessageSeq         = "inbox:msg_seq"
	CacheKeyLastUpdate         = "inbox:last_update"
	CacheKeyPrefixCredentials  = "inbox:credentials:"
	CacheKeyPrefixVerifyToken  = "inbox:verify_token:"
)

const (
	DefaultMongoDBName       = "inboxhook"
	MongoMessagesCollection  = "messages"
	MongoCountersCollection  = "counters"
	PostgresMessagesTable    = "webhook_messages"
	DefaultGraphAPIURL       = "https://graph.facebook.com/v19.0"
	DefaultInstagramGraphURL = "https://graph.instagram.com/v19.0"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20
	ShutdownTimeout     = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	EnvelopeSourceWebhook  = "webhook"
	EnvelopeSourceBackfill = "backfill"
	EnvelopeSourceOutbound = "outbound"
)
