package config

import (
	"os"
	"strconv"
	"time"
)

// NodeConfig describes this node's identity, listen addresses, and the
// resource capacity it offers to the cluster.
type NodeConfig struct {
	NodeID               string
	Host                 string
	TCPPort              int
	HTTPPort             int
	NumCPUs              float64
	NumGPUs              float64
	MemoryBytes          float64
	StatePublishInterval time.Duration
	NodeLeaseTTLSec      int64
}

func NewNodeConfig() *NodeConfig {
	return &NodeConfig{
		NodeID:               envString("NODE_ID", "node-local"),
		Host:                 envString("NODE_HOST", "127.0.0.1"),
		TCPPort:              envInt("NODE_TCP_PORT", 9090),
		HTTPPort:             envInt("NODE_HTTP_PORT", 8080),
		NumCPUs:              envFloat("NODE_NUM_CPUS", 4),
		NumGPUs:              envFloat("NODE_NUM_GPUS", 0),
		MemoryBytes:          envFloat("NODE_MEMORY_BYTES", 4*1024*1024*1024),
		StatePublishInterval: time.Duration(envInt("NODE_STATE_PUBLISH_INTERVAL_SEC", 10)) * time.Second,
		NodeLeaseTTLSec:      int64(envInt("NODE_LEASE_TTL_SEC", 30)),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}
