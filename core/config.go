package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultJWTExpiration = 12 * time.Hour
	DefaultOTPCodeTTL    = 10 * time.Minute
	DefaultOTPCooldown   = 60 * time.Second
)

type (
	Config struct {
		Env        string // DEV (local; default), TEST, PROD
		Build      string
		Debug      bool
		TestMode   bool
		AppName    string
		SecretKey  string
		WorkDir    string
		LogFile    string
		RollbarKey string

		Server   ServerConfig
		Database DatabaseConfig
		Email    EmailConfig
		OTP      OTPConfig
		Admin    AdminConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine     string // sqlite3 | postgres
		Path       string // sqlite3 only
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	EmailConfig struct {
		Backend          string // console | smtp | sendgrid
		DefaultFromEmail string
		SendTimeout      time.Duration
		SendgridAPIKey   string
		SMTP             SMTPConfig
	}

	SMTPConfig struct {
		Host               string
		Port               int
		User               string
		Password           string
		Connections        int
		InsecureSkipVerify bool
	}

	OTPConfig struct {
		CodeTTL  time.Duration
		Cooldown time.Duration
	}

	AdminConfig struct {
		Username     string
		PasswordHash string // bcrypt
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FromAddress parses the configured sender address, falling back to a bare address on error.
func (c EmailConfig) FromAddress() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Address: c.DefaultFromEmail}
	}
	return *addr
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Khaosat")
	conf.SetDefault("secretKey", "")
	conf.SetDefault("logFile", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("jwtExpirationDelta", DefaultJWTExpiration)
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("dbEngine", "sqlite3")
	conf.SetDefault("dbPath", "survey.db")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "khaosat")
	conf.SetDefault("dbUser", "")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbDisableTLS", false)

	conf.SetDefault("emailBackend", "console")
	conf.SetDefault("defaultFromEmail", "Survey System <noreply@localhost>")
	conf.SetDefault("emailSendTimeout", 15*time.Second)
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("smtpHost", "")
	conf.SetDefault("smtpPort", 587)
	conf.SetDefault("smtpUser", "")
	conf.SetDefault("smtpPassword", "")
	conf.SetDefault("smtpConnections", 2)
	conf.SetDefault("smtpInsecureSkipVerify", false)

	conf.SetDefault("otpCodeTTL", DefaultOTPCodeTTL)
	conf.SetDefault("otpCooldown", DefaultOTPCooldown)

	conf.SetDefault("adminUsername", "admin")
	conf.SetDefault("adminPasswordHash", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:        env,
		Build:      conf.GetString("build"),
		Debug:      conf.GetBool("debug"),
		TestMode:   conf.GetBool("testMode"),
		AppName:    conf.GetString("appName"),
		SecretKey:  conf.GetString("secretKey"),
		WorkDir:    wd,
		LogFile:    conf.GetString("logFile"),
		RollbarKey: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Address:            conf.GetString("serverAddress"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("shutdownTimeout"),
			DisableReqLogs:     conf.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("dbEngine"),
			Path:       conf.GetString("dbPath"),
			Host:       conf.GetString("dbHost"),
			Port:       conf.GetInt("dbPort"),
			Name:       conf.GetString("dbName"),
			User:       conf.GetString("dbUser"),
			Password:   conf.GetString("dbPassword"),
			DisableTLS: conf.GetBool("dbDisableTLS"),
		},
		Email: EmailConfig{
			Backend:          strings.ToLower(conf.GetString("emailBackend")),
			DefaultFromEmail: conf.GetString("defaultFromEmail"),
			SendTimeout:      conf.GetDuration("emailSendTimeout"),
			SendgridAPIKey:   conf.GetString("sendgridApiKey"),
			SMTP: SMTPConfig{
				Host:               conf.GetString("smtpHost"),
				Port:               conf.GetInt("smtpPort"),
				User:               conf.GetString("smtpUser"),
				Password:           conf.GetString("smtpPassword"),
				Connections:        conf.GetInt("smtpConnections"),
				InsecureSkipVerify: conf.GetBool("smtpInsecureSkipVerify"),
			},
		},
		OTP: OTPConfig{
			CodeTTL:  conf.GetDuration("otpCodeTTL"),
			Cooldown: conf.GetDuration("otpCooldown"),
		},
		Admin: AdminConfig{
			Username:     conf.GetString("adminUsername"),
			PasswordHash: conf.GetString("adminPasswordHash"),
		},
	}
}
