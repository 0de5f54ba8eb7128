package fiscal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

// HTTPArchiver posts transactions to the archive endpoint. Each submission
// carries a SHA-256 hash chained onto the previous accepted submission, so
// the archive can detect gaps or tampering in the sequence.
type HTTPArchiver struct {
	endpoint string
	client   *http.Client
	logg     *logger.Logger

	mtx      sync.Mutex
	lastHash string
}

type archiveRequest struct {
	Order        state.Order `json:"order"`
	PreviousHash string      `json:"previous_hash"`
	Hash         string      `json:"hash"`
}

type archiveResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}

func NewHTTPArchiver(cfg config.FiscalConfig, logg *logger.Logger) (*HTTPArchiver, error) {
	endpoint := strings.TrimSpace(cfg.ArchiveURL)
	if endpoint == "" {
		return nil, fmt.Errorf("fiscal archive url is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPArchiver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logg:     logg,
	}, nil
}

// Archive submits the order. The hash chain only advances when the archive
// acknowledges the submission, so a failed attempt can be resubmitted with
// the same previous hash.
func (a *HTTPArchiver) Archive(ctx context.Context, order state.Order) (string, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	payload := archiveRequest{
		Order:        order,
		PreviousHash: a.lastHash,
	}
	hash, err := chainHash(a.lastHash, order)
	if err != nil {
		return "", err
	}
	payload.Hash = hash

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding archive request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting to fiscal archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("fiscal archive rejected submission: status %d: %s", resp.StatusCode, snippet)
	}

	var decoded archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding archive response: %w", err)
	}
	if decoded.InvoiceNumber == "" {
		return "", fmt.Errorf("fiscal archive returned empty invoice number")
	}

	a.lastHash = hash
	a.logg.Info(a.logg.WithOrderID(ctx, order.ID), "transaction archived")
	return decoded.InvoiceNumber, nil
}

func chainHash(previous string, order state.Order) (string, error) {
	encoded, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("encoding order for hashing: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(previous))
	sum.Write(encoded)
	return hex.EncodeToString(sum.Sum(nil)), nil
}
