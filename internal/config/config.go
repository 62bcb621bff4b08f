package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"wordchain/internal/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const dictionaryAPIDefault = "https://dictionaryapi.com/api/v3/references/collegiate/json/{word}?key={api_key}"

type Config struct {
	AppPort          string
	DatabaseURI      string
	DictionaryAPIURL string
	DictionaryAPIKey string
	AuthJWTSecret    string
	CORSOrigins      []string

	RootID  uuid.UUID
	LobbyID int

	AuthCookieName       string
	AuthCookieExpiration time.Duration

	GameStartDelay       time.Duration
	TurnStartDelay       time.Duration
	MaxTurnTimeDeviation time.Duration

	RoomDeletionInterval time.Duration
	RoomDeletionDelay    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()

	dbURI := os.Getenv("DATABASE_URI")
	if dbURI == "" {
		logger.Fatal("DATABASE_URI is not set")
	}

	apiKey := os.Getenv("DICTIONARY_API_KEY")
	if apiKey == "" {
		logger.Fatal("DICTIONARY_API_KEY is not set")
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		logger.Fatal("AUTH_JWT_SECRET is not set")
	}

	rootIDStr := os.Getenv("ROOT_ID")
	if rootIDStr == "" {
		logger.Fatal("ROOT_ID is not set")
	}
	rootID, err := uuid.Parse(rootIDStr)
	if err != nil {
		logger.Fatal("ROOT_ID is not a valid UUID", "value", rootIDStr)
	}

	apiURL := os.Getenv("DICTIONARY_API_URL")
	if apiURL == "" {
		apiURL = dictionaryAPIDefault
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cookieName := os.Getenv("AUTH_COOKIE_NAME")
	if cookieName == "" {
		cookieName = "player_id"
	}

	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURI:      dbURI,
		DictionaryAPIURL: apiURL,
		DictionaryAPIKey: apiKey,
		AuthJWTSecret:    secret,
		CORSOrigins:      origins,

		RootID:  rootID,
		LobbyID: envInt("LOBBY_ID", 1),

		AuthCookieName:       cookieName,
		AuthCookieExpiration: envSeconds("AUTH_COOKIE_EXPIRATION", 1200*time.Second),

		GameStartDelay:       envSeconds("GAME_START_DELAY", 3*time.Second),
		TurnStartDelay:       envSeconds("TURN_START_DELAY", 2*time.Second),
		MaxTurnTimeDeviation: envSeconds("MAX_TURN_TIME_DEVIATION", time.Second),

		RoomDeletionInterval: envSeconds("ROOM_DELETION_INTERVAL", 60*time.Second),
		RoomDeletionDelay:    envSeconds("ROOM_DELETION_DELAY", 300*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
	}
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Fatal(name+" is not a valid integer", "value", v)
	}
	return n
}

// envSeconds parses a duration given as a number of seconds.
func envSeconds(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		logger.Fatal(name+" is not a valid number of seconds", "value", v)
	}
	return time.Duration(secs * float64(time.Second))
}
