package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// keyEntry mirrors one element of the keys file.
type keyEntry struct {
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// LoadAccounts reads exchange credentials from a JSON keys file and pairs
// them line-by-line with proxies from a text file (host:port:user:pass per
// line). The two files must have the same number of entries; any malformed
// entry aborts loading, since trading with a partially valid account set
// risks unbalanced cycles.
func LoadAccounts(keysPath, proxiesPath string) ([]types.Account, error) {
	keysData, err := os.ReadFile(keysPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read keys file %s", keysPath)
	}

	var keys []keyEntry
	if err := json.Unmarshal(keysData, &keys); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse keys file", err)
	}

	proxies, err := readProxyLines(proxiesPath)
	if err != nil {
		return nil, err
	}

	if len(keys) != len(proxies) {
		return nil, errors.Newf(errors.ErrCodeAccountProxyMismatch,
			"keys count (%d) != proxies count (%d)", len(keys), len(proxies))
	}

	accounts := make([]types.Account, 0, len(keys))

	for i, key := range keys {
		if key.APIKey == "" || key.APISecret == "" {
			return nil, errors.Newf(errors.ErrCodeMissingCredential, "key entry #%d missing api_key/api_secret", i)
		}

		proxyURL, err := parseProxyLine(proxies[i])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidProxy, err, "invalid proxy format at line %d: %s", i+1, proxies[i])
		}

		name := strings.TrimSpace(key.Name)
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}

		account := types.Account{
			Name:      name,
			APIKey:    key.APIKey,
			APISecret: key.APISecret,
			ProxyURL:  proxyURL,
		}
		if err := account.Validate(); err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, nil
}

// readProxyLines returns the non-empty lines of the proxies file.
func readProxyLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read proxies file %s", path)
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to scan proxies file", err)
	}

	return lines, nil
}

// parseProxyLine converts host:port:user:pass into a proxy URL.
func parseProxyLine(line string) (string, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("expected host:port:user:pass, got %d parts", len(parts))
	}

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", fmt.Errorf("empty component in proxy line")
		}
	}

	host, port, user, pass := parts[0], parts[1], parts[2], parts[3]

	return fmt.Sprintf("http://%s:%s@%s:%s", user, pass, host, port), nil
}
