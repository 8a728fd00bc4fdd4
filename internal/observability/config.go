package observability

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/shopbooks/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	// StoreName is the shop the books belong to. StoreKey is its slug, the
	// same key persisted snapshots are filed under.
	StoreName string
	StoreKey  string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
	// OtelResource holds extra resource attributes from OTEL_RESOURCE_ATTRIBUTES.
	OtelResource map[string]string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "shopbooks"
	}
	environment := getenv("DEPLOYMENT_ENV", cfg.Environment)
	version := getenv("SERVICE_VERSION", cfg.AppVersion)
	logLevel := strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info")))
	logFormat := strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json")))
	otlpEndpoint := getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	otlpProtocol := strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
	if tracesProtocol := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); tracesProtocol != "" {
		otlpProtocol = strings.ToLower(tracesProtocol)
	}

	storeName := strings.TrimSpace(cfg.StoreName)
	storeKey := slug.Make(storeName)
	if storeKey == "" {
		storeKey = "default"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(environment),
		Version:              strings.TrimSpace(version),
		StoreName:            storeName,
		StoreKey:             storeKey,
		LogLevel:             logLevel,
		LogFormat:            logFormat,
		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: strings.TrimSpace(otlpEndpoint),
		OtelExporterProtocol: otlpProtocol,
		OtelSamplingRatio:    clampRatio(getenvFloat("OTEL_SAMPLING_RATIO", 0.1)),
		OtelResource:         parseResourceAttributes(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

// ResourceAttributes describes this process to trace and metric exporters.
// The books.* keys let a collector split telemetry by shop.
func (c Config) ResourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("deployment.environment", c.Environment),
		attribute.String("books.store", c.StoreKey),
	}
	if c.StoreName != "" {
		attrs = append(attrs, attribute.String("books.store_name", c.StoreName))
	}

	keys := make([]string, 0, len(c.OtelResource))
	for k := range c.OtelResource {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if reservedResourceKey(k) {
			continue
		}
		attrs = append(attrs, attribute.String(k, c.OtelResource[k]))
	}
	return attrs
}

func (c Config) Debug() bool {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if level == "debug" {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	switch env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// reservedResourceKey reports keys owned by the config itself.
func reservedResourceKey(k string) bool {
	switch k {
	case "service.name", "service.version", "deployment.environment":
		return true
	}
	return strings.HasPrefix(k, "books.")
}

// parseResourceAttributes reads the k1=v1,k2=v2 form. Malformed pairs are skipped.
func parseResourceAttributes(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
