package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "osmterrain",
	Short: "Index OpenStreetMap roads, buildings and water for terrain generation",
	Long: `osmterrain downloads OpenStreetMap data from an Overpass endpoint in
one-arc-minute tiles, turns it into edges bucketed by 16-unit world cells, and
classifies every tile's surface as ground, inland water or ocean.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	pf.Bool("verbose", false, "Enable verbose logging")
	pf.String("log-format", "text", "Log format (text, json)")
	pf.String("endpoint", "", "Overpass interpreter URL (default: public overpass-api.de)")
	pf.String("transport", "http", "Overpass transport (http, client)")
	pf.String("response-cache", "", "SQLite file caching raw Overpass responses")
	pf.String("redis-addr", "", "Redis address caching raw Overpass responses (host:port)")
	pf.String("redis-password", "", "Redis password")
	pf.Int("redis-db", 0, "Redis database")
	pf.Duration("redis-ttl", 0, "Expiry of cached responses in Redis (0 keeps them)")
	pf.Int("cache-size", 256, "Maximum number of tiles kept in memory")
	pf.Int("max-attempts", 5, "Fetch attempts per tile before it is marked failed")
	pf.Duration("retry-backoff", 0, "Pause between fetch attempts")
	pf.Float64("scale", 0, "World units per degree (default: 111320)")
	pf.Bool("no-roads", false, "Skip roads and railways")
	pf.Bool("no-water", false, "Skip waterways and water areas")
	pf.Bool("no-buildings", false, "Skip buildings")
	pf.StringSlice("ocean-tiles", nil, "Tiles whose south-west corner lies in open ocean (x<X>_y<Y>)")

	for _, key := range []string{
		"verbose", "log-format", "endpoint", "transport", "response-cache",
		"redis-addr", "redis-password", "redis-db", "redis-ttl",
		"cache-size", "max-attempts", "retry-backoff", "scale",
		"no-roads", "no-water", "no-buildings", "ocean-tiles",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(key)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
		}
	}
}

func initConfig() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OSMTERRAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
