package conf

// Bootstrap is the root configuration loaded at startup.
type Bootstrap struct {
	Server    *Server    `json:"server"`
	Data      *Data      `json:"data"`
	Shortener *Shortener `json:"shortener"`
	Ingest    *Ingest    `json:"ingest"`
	Retention *Retention `json:"retention"`
	Geoip     *Geoip     `json:"geoip"`
}

// Server holds transport configuration.
type Server struct {
	HTTP *HTTPServer `json:"http"`
}

// HTTPServer configures the HTTP listener.
type HTTPServer struct {
	Network        string `json:"network"`
	Addr           string `json:"addr"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

// Data holds the storage configuration. Driver is "postgres" or "sqlite3";
// an empty Redis address disables the projection cache.
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
}

// Database configures the SQL store.
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// Redis configures the optional cache.
type Redis struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Shortener holds the code-generation parameters.
type Shortener struct {
	BaseURL                 string   `json:"base_url"`
	MinCodeLength           int      `json:"min_code_length"`
	ExpectedURLs            int64    `json:"expected_urls"`
	MaxCollisionProbability float64  `json:"max_collision_probability"`
	CustomCodeMinLength     int      `json:"custom_code_min_length"`
	CustomCodeMaxLength     int      `json:"custom_code_max_length"`
	ReservedWords           []string `json:"reserved_words"`
}

// Ingest holds the click-ingestion pipeline tunables. Zero values fall
// back to the pipeline defaults.
type Ingest struct {
	QueueSize int `json:"queue_size"`
	Workers   int `json:"workers"`
}

// Retention configures click-event cleanup. Zero days disables cleanup;
// a zero interval falls back to the worker default.
type Retention struct {
	Days            int   `json:"days"`
	IntervalSeconds int64 `json:"interval_seconds"`
}

// Geoip points at a MaxMind database file. An empty path disables
// geolocation; clicks then carry Unknown locations.
type Geoip struct {
	DatabasePath string `json:"database_path"`
}
