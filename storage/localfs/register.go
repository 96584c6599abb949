package localfs

import (
	"errors"
	"flag"

	"fordefi.com/solhost/storage"
	"fordefi.com/solhost/storage/storeregistry"
)

var flagDir string

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "localfs",
		Description: "filesystem artifact store (sharded by CID)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDir, "localfs-dir", "", "localfs store root directory")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagDir)
		},
		OpenWithConfig: func(config map[string]string) (storage.CAS, func() error, error) {
			return open(config["localfs-dir"])
		},
	})
}

func open(dir string) (storage.CAS, func() error, error) {
	if dir == "" {
		return nil, nil, errors.New("localfs: -localfs-dir is required")
	}
	cas, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return cas, nil, nil
}
