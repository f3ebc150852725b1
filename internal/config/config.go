package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits the event seed list
	"time"    // time parses TTL durations and event start times

	"github.com/joho/godotenv" // godotenv loads a .env file into the environment

	"github.com/bannnned/sea-cinema-booking/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// hold TTL and sweep interval.
type Config struct {
	Env                string        // application environment (e.g. "dev", "prod")
	Port               string        // HTTP port to listen on
	DBHost             string        // database host; empty disables MySQL persistence
	DBPort             string        // database port number
	DBUser             string        // database username
	DBPass             string        // database password (optional)
	DBName             string        // database name
	JWTSecret          string        // secret used to sign JWTs
	AccessTTLMin       int           // access token time-to-live in minutes
	FrontendSecretHash string        // bcrypt hash of the front-end client secret
	OperatorSecretHash string        // bcrypt hash of the operator secret
	HoldTTL            time.Duration // how long a pending hold survives before expiry
	SweepInterval      time.Duration // how often the expiry sweep runs
	SessionTTL         time.Duration // how long an abandoned pick session survives
	SeatsPerEvent      int           // seats created per event at bootstrap
	UnitPriceCents     uint32        // flat per-seat price in cents
	Events             []model.Event // event seed applied when the catalog store is empty
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // absence of a .env file is not an error

	// Seat IDs are derived as event_id*100 + seat_number, so a block of
	// 100 or more seats would collide with the next event's block.
	seatsPerEvent := envInt("SEATS_PER_EVENT", 25)
	if seatsPerEvent < 1 || seatsPerEvent > 99 {
		log.Fatalf("SEATS_PER_EVENT must be between 1 and 99, got %d", seatsPerEvent)
	}

	return Config{
		Env:                getenv("APP_ENV", "dev"),
		Port:               must("APP_PORT"),
		DBHost:             os.Getenv("DB_HOST"), // empty -> in-memory persistence
		DBPort:             getenv("DB_PORT", "3306"),
		DBUser:             os.Getenv("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"),
		DBName:             os.Getenv("DB_NAME"),
		JWTSecret:          must("JWT_SECRET"),
		AccessTTLMin:       mustInt("ACCESS_TOKEN_TTL_MIN"),
		FrontendSecretHash: must("FRONTEND_SECRET_HASH"),
		OperatorSecretHash: must("OPERATOR_SECRET_HASH"),
		HoldTTL:            envDur("HOLD_TTL", 15*time.Minute),
		SweepInterval:      envDur("SWEEP_INTERVAL", time.Minute),
		SessionTTL:         envDur("SESSION_TTL", time.Hour),
		SeatsPerEvent:      seatsPerEvent,
		UnitPriceCents:     uint32(envInt("UNIT_PRICE_CENTS", 60000)),
		Events:             parseEvents(os.Getenv("EVENTS")),
	}
}

// parseEvents decodes the EVENTS seed variable.  The format is a
// semicolon-separated list of id|title|RFC3339 triples, e.g.
// "1|Dune|2026-09-05T19:00:00Z;2|Alien|2026-09-05T22:00:00Z".
// Malformed entries are skipped with a warning rather than aborting
// startup, since the seed only applies to an empty store anyway.
func parseEvents(raw string) []model.Event {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var events []model.Event
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, "|", 3)
		if len(fields) != 3 {
			log.Printf("config: skipping malformed EVENTS entry %q", part)
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil || id == 0 {
			log.Printf("config: skipping EVENTS entry with bad id %q", part)
			continue
		}
		startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[2]))
		if err != nil {
			log.Printf("config: skipping EVENTS entry with bad time %q", part)
			continue
		}
		events = append(events, model.Event{
			ID:       id,
			Title:    strings.TrimSpace(fields[1]),
			StartsAt: startsAt.UTC(),
		})
	}
	return events
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
