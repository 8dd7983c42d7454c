package config

import "time"

type MongoConfig interface {
	GetMongoURI() string
	GetMongoDatabase() string
	GetMongoTimeout() time.Duration
}

type Mongo struct{}

var _ MongoConfig = Mongo{}

func (Mongo) GetMongoURI() string {
	return GetEnv("MONGO_URI", "mongodb://localhost:27017")
}

func (Mongo) GetMongoDatabase() string {
	return GetEnv("MONGO_DATABASE", "taskhub")
}

func (Mongo) GetMongoTimeout() time.Duration {
	return GetEnvDuration("MONGO_TIMEOUT", 10*time.Second)
}
