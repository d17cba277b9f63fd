package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// SubgraphQueryURL is the query URL of The Graph project serving the
	// Uniswap V3 subgraph for the configured chain.
	SubgraphQueryURL string
	// LLMEndpoint is the base URL of the llama.cpp completion server.
	LLMEndpoint string
	// WebPort is the port of the local audit API.
	WebPort string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	SubgraphQueryURL, err = getEnv("SUBGRAPH_QUERY_URL")
	if err != nil {
		return err
	}

	LLMEndpoint, err = getEnv("LLM_ENDPOINT")
	if err != nil {
		return err
	}

	WebPort = getEnvOptional("WEB_PORT", "8080")

	log.Debug().
		Str("SubgraphQueryURL", SubgraphQueryURL).
		Str("LLMEndpoint", LLMEndpoint).
		Str("WebPort", WebPort).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
