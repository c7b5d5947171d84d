package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName     = "com.bluelink.auth"
	keyringPasswordService = "accountPassword"
	keyringPinService      = "accountPin"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b *backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func supportedBackends() string {
	var names []string
	for _, name := range keyring.AvailableBackends() {
		names = append(names, string(name))
	}
	return strings.Join(names, ", ")
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		}
		w = os.Stderr
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	return keyring.Open(c.Backend)
}

func (c *Config) secretKey(service string) string {
	return service + "." + c.Username
}

// LoadSecretFromKeyring reads a stored secret for the configured account.
func (c *Config) LoadSecretFromKeyring(service string) (string, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return "", err
	}
	item, err := kr.Get(c.secretKey(service))
	if err != nil {
		return "", fmt.Errorf("could not load secret: %s", err)
	}
	return string(item.Data), nil
}

// SavePasswordToKeyring writes the account password to the system keyring.
func (c *Config) SavePasswordToKeyring() error {
	return c.saveSecret(keyringPasswordService, c.Password)
}

// SavePinToKeyring writes the account PIN to the system keyring.
func (c *Config) SavePinToKeyring() error {
	return c.saveSecret(keyringPinService, c.PIN)
}

func (c *Config) saveSecret(service, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to store an empty secret")
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	if err := kr.Set(keyring.Item{
		Key:  c.secretKey(service),
		Data: []byte(value),
	}); err != nil {
		return fmt.Errorf("failed to enroll secret in keyring: %s", err)
	}
	return nil
}

// DeleteSecrets removes the account's stored password and PIN from the system keyring.
func (c *Config) DeleteSecrets() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	for _, service := range []string{keyringPasswordService, keyringPinService} {
		if err := kr.Remove(c.secretKey(service)); err != nil && err != keyring.ErrKeyNotFound {
			return err
		}
	}
	return nil
}
