package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"
	"github.com/spf13/viper"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "config")
}

func writeConfigFile(contents string) string {
	dir, err := os.MkdirTemp("", "pogo-proxies-config")
	Expect(err).NotTo(HaveOccurred())
	path := filepath.Join(dir, "config.yaml")
	Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())
	return path
}

var _ = Describe("ViperLoader", func() {
	It("fills defaults and loads required fields from a config file", func() {
		path := writeConfigFile(`
judge_url: http://judge.example/azenv.php
local_ip: 203.0.113.9
pogo_version: "0.301.0"
niantic_url: https://sso.pokemon.com/sso/login
ptc_login_url: https://sso.pokemon.com/sso/login
ptc_signup_url: https://club.pokemon.com/en-us/sign-up
ptc_signup_title: "Create a Club account"
max_concurrency: 25
`)
		v := viper.New()
		v.Set("config", path)
		loader := NewViperLoader(v)

		cfg, err := loader.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.JudgeURL).To(Equal("http://judge.example/azenv.php"))
		Expect(cfg.MaxConcurrency).To(Equal(25))
		Expect(cfg.DatabasePath).To(Equal("pogo-proxies.db"))
		Expect(cfg.Retries).To(Equal(3))
		Expect(cfg.BackoffFactor).To(Equal(1.0))
	})

	It("rejects a config missing a required field", func() {
		path := writeConfigFile(`
local_ip: 203.0.113.9
`)
		v := viper.New()
		v.Set("config", path)
		loader := NewViperLoader(v)

		_, err := loader.Load()
		Expect(err).To(HaveOccurred())
	})
})
