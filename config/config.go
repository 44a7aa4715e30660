package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Configuration struct {
	BaseDN            string
	DcFQDN            string
	Username          string
	Password          string
	PageSize          uint32
	BindTimeout       time.Duration
	RootGroup         string
	UsersContainer    string
	DisabledContainer string
	BaseGroup         string
	ManualDepartments []string
	CrawlRate         float64
	MirrorDSN         string
	MetricsAddr       string
}

// LoadEnvConfig reads the env file and fails fast on anything malformed.
// Sync passes bind as Username/Password; mutation workflows always bind as
// the acting administrator instead.
func LoadEnvConfig(configName string) Configuration {
	err := godotenv.Load(configName)
	if err != nil {
		log.Fatalf("Error loading env file %s: %v", configName, err)
	}

	cfg := Configuration{
		BaseDN:            os.Getenv("LDAP_BASEDN"),
		DcFQDN:            os.Getenv("LDAP_DCFQDN"),
		Username:          os.Getenv("LDAP_USERNAME"),
		Password:          os.Getenv("LDAP_PASSWORD"),
		RootGroup:         os.Getenv("LDAP_ROOT_GROUP"),
		UsersContainer:    os.Getenv("LDAP_USERS_OU"),
		DisabledContainer: os.Getenv("LDAP_DISABLED_OU"),
		BaseGroup:         os.Getenv("LDAP_BASE_GROUP"),
		MirrorDSN:         os.Getenv("MIRROR_DSN"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
	}

	if cfg.BaseDN == "" || cfg.DcFQDN == "" {
		log.Fatal("LDAP_BASEDN and LDAP_DCFQDN are required")
	}
	if cfg.MirrorDSN == "" {
		log.Fatal("MIRROR_DSN is required")
	}

	pageSize, err := strconv.Atoi(envOrDefault("LDAP_PAGESIZE", "1000"))
	if err != nil {
		log.Fatalf("failed to parse LDAP_PAGESIZE: %v", err)
	}
	cfg.PageSize = uint32(pageSize)

	bindTimeout, err := strconv.Atoi(envOrDefault("LDAP_BIND_TIMEOUT_SECONDS", "15"))
	if err != nil {
		log.Fatalf("failed to parse LDAP_BIND_TIMEOUT_SECONDS: %v", err)
	}
	cfg.BindTimeout = time.Duration(bindTimeout) * time.Second

	cfg.CrawlRate, err = strconv.ParseFloat(envOrDefault("LDAP_CRAWL_RPS", "25"), 64)
	if err != nil {
		log.Fatalf("failed to parse LDAP_CRAWL_RPS: %v", err)
	}

	if raw := os.Getenv("MANUAL_DEPARTMENTS"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.ManualDepartments = append(cfg.ManualDepartments, name)
			}
		}
	}

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
