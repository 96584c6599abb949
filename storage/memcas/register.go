package memcas

import (
	"flag"

	"fordefi.com/solhost/storage"
	"fordefi.com/solhost/storage/storeregistry"
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "mem",
		Description: "in-memory artifact store (ephemeral)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			// No configuration.
			_ = fs
		},
		Open: func() (storage.CAS, func() error, error) {
			return New(), nil, nil
		},
		OpenWithConfig: func(map[string]string) (storage.CAS, func() error, error) {
			return New(), nil, nil
		},
	})
}
