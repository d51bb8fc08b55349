package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv               = "STOREFRONT_APP_ENV"
	EnvPort                 = "STOREFRONT_APP_PORT"
	EnvDBDSN                = "STOREFRONT_DB_DSN"
	EnvDBHost               = "STOREFRONT_DB_HOST"
	EnvDBUser               = "STOREFRONT_DB_USER"
	EnvDBName               = "STOREFRONT_DB_NAME"
	EnvUseSQLite            = "STOREFRONT_USE_SQLITE"
	EnvRedisURL             = "STOREFRONT_REDIS_URL"
	EnvRedisAddr            = "STOREFRONT_REDIS_ADDR"
	EnvJWTSecret            = "STOREFRONT_JWT_SECRET"
	EnvPromoDiscountPercent = "STOREFRONT_PROMO_DISCOUNT_PERCENT"
	EnvPromoFreezeDiscount  = "STOREFRONT_PROMO_FREEZE_DISCOUNT"
	EnvCartSessionTTL       = "STOREFRONT_CART_SESSION_TTL"
	EnvPubSubOrdersTopic    = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
