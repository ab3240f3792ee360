package config

import (
	"os"
	"strings"
)

type EtcdConfig struct {
	Endpoints []string
}

func NewEtcdConfig() *EtcdConfig {
	endpoints := os.Getenv("ETCD_ENDPOINTS")
	if endpoints == "" {
		endpoints = "localhost:2379"
	}
	return &EtcdConfig{
		Endpoints: strings.Split(endpoints, ","),
	}
}
