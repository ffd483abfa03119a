package common

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvPort           = "PORT"
	EnvModelPath      = "MODEL_PATH"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvReadTimeout    = "READ_TIMEOUT"
	EnvWriteTimeout   = "WRITE_TIMEOUT"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
	EnvTrainingSeed   = "TRAINING_SEED"
	EnvMaxDepth       = "MAX_DEPTH"
	EnvDatasetPath    = "DATASET_PATH"
	EnvPredictorURL   = "PREDICTOR_URL"
)

// Configuration defaults
const (
	DefaultPort         = 8080
	DefaultModelPath    = "crop_prediction_model.db"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultTrainingSeed = 42
	DefaultPredictorURL = "http://localhost:8080"
)

// Response messages returned by the prediction endpoint. Clients match on
// these strings, so they must not change.
const (
	ErrMsgModelUnavailable = "ML model failed to load or is unavailable"
	ErrMsgMissingFeatures  = "Missing required features for prediction"
	ErrMsgInternalPrefix   = "An internal server error occurred during prediction: "
)

// Validation constants
const (
	MinPort    = 1024
	MaxPort    = 65535
	MaxBodyLen = 1 << 20
)
