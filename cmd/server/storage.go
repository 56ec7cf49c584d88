package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/config"
	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/mqtt"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
	redisclient "github.com/Nixie-Tech-LLC/pausetime/internal/redis"
	"github.com/Nixie-Tech-LLC/pausetime/internal/storage"
)

// InitStorage selects and returns the configured audio storage backend
func InitStorage(cfg *config.Config) storage.Storage {
	if cfg.UseSpaces {
		spacesStorage, err := storage.NewSpacesStorage(
			cfg.SpacesEndpoint,
			cfg.SpacesRegion,
			cfg.SpacesBucket,
			cfg.SpacesCDNURL,
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Spaces storage")
		}
		log.Info().Str("cdn", cfg.SpacesCDNURL).Msg("using DigitalOcean Spaces storage")
		return spacesStorage
	}

	local := storage.NewLocalStorage(cfg.UploadDir)
	log.Info().Str("dir", cfg.UploadDir).Msg("using local file storage")
	return local
}

// InitStore opens the key/value store that keeps alarms, the ezan record and
// volume across restarts. The returned func releases it.
func InitStore(cfg *config.Config) (db.Store, func()) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		if err := redisclient.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword); err != nil {
			log.Fatal().Err(err).Msg("redis init")
		}
		log.Info().Str("addr", cfg.RedisAddress).Msg("using redis client storage")
		return redisclient.NewStore(redisclient.Rdb), func() { _ = redisclient.Rdb.Close() }

	case config.StoragePostgres:
		// initialize PostgreSQL
		if err := db.Init(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("db init")
		}
		// run pending migrations
		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		log.Info().Msg("using postgres client storage")
		return db.NewStore(db.DB), func() { _ = db.DB.Close() }
	}

	log.Warn().Msg("using in-memory client storage, state is lost on restart")
	return db.NewMemoryStore(), func() {}
}

// InitRemoteChannel connects the remote player's MQTT channel. Without a
// broker every remote command fails and the local source still works.
func InitRemoteChannel(cfg *config.Config) (player.CommandChannel, func()) {
	if cfg.MQTTBrokerURL == "" {
		log.Warn().Msg("MQTT_BROKER_URL not set, remote player disabled")
		return mqtt.Offline{}, func() {}
	}
	channel, err := mqtt.Connect(cfg.MQTTBrokerURL, cfg.MQTTDeviceID)
	if err != nil {
		log.Error().Err(err).Msg("MQTT connect failed, remote player disabled")
		return mqtt.Offline{}, func() {}
	}
	return channel, channel.Close
}

// SubscribeRemoteStatus feeds the remote player's status reports into its element.
func SubscribeRemoteStatus(channel player.CommandChannel, remote *player.RemoteElement) {
	ch, ok := channel.(*mqtt.Channel)
	if !ok || remote == nil {
		return
	}
	if err := ch.SubscribeStatus(remote.HandleStatus); err != nil {
		log.Error().Err(err).Msg("failed to subscribe to remote player status")
	}
}
