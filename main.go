package main

import (
	"flag"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

func main() {
	flag.Parse()

	config, err := LoadConfig()
	if err != nil {
		glog.Error(err)
		os.Exit(1)
	}

	if err := os.MkdirAll(config.WorkRoot, 0o755); err != nil {
		glog.Errorf("could not create work root %s: %v", config.WorkRoot, err)
		os.Exit(1)
	}

	router := GetRouter(config)
	address := strings.Join([]string{config.Hostname, strconv.Itoa(config.Port)}, ":")
	glog.Infof("starting HTTP listener at %s (compiler: %s, timeout: %s)",
		address, config.CompilerBin, config.Timeout)
	glog.Fatal(http.ListenAndServe(address, router))
}
