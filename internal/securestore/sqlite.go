package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const (
	encryptedTable = "secure_items"
	plainTable     = "web_storage"
)

// SQLiteMedium keeps values in a single sqlite table. The encrypted variant
// seals every value with AES-256-GCM; the plain variant is the web platform's
// persistent key/value store and offers no confidentiality.
type SQLiteMedium struct {
	conn   *sql.DB
	cipher cipher.AEAD
	table  string
}

// NewEncryptedSQLiteMedium opens (or creates) an encrypted store at path.
// key must be 32 bytes.
func NewEncryptedSQLiteMedium(path string, key []byte) (*SQLiteMedium, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return openSQLiteMedium(path, encryptedTable, gcm)
}

// NewPlainSQLiteMedium opens (or creates) an unencrypted store at path
func NewPlainSQLiteMedium(path string) (*SQLiteMedium, error) {
	return openSQLiteMedium(path, plainTable, nil)
}

func openSQLiteMedium(path, table string, aead cipher.AEAD) (*SQLiteMedium, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; sqlite serializes anyway and this avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	m := &SQLiteMedium{conn: conn, cipher: aead, table: table}

	if err := m.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return m, nil
}

func (m *SQLiteMedium) migrate() error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`, m.table)

	_, err := m.conn.Exec(query)
	return err
}

func (m *SQLiteMedium) Name() string {
	if m.cipher != nil {
		return "sqlite-encrypted"
	}
	return "sqlite"
}

func (m *SQLiteMedium) SecretGrade() bool {
	return m.cipher != nil
}

// Set stores value, replacing any existing row for key
func (m *SQLiteMedium) Set(ctx context.Context, key, value string) error {
	stored := value
	if m.cipher != nil {
		sealed, err := m.encrypt(key, []byte(value))
		if err != nil {
			return err
		}
		stored = sealed
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, m.table)

	if _, err := m.conn.ExecContext(ctx, query, key, stored); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get retrieves and, for the encrypted variant, opens the value for key
func (m *SQLiteMedium) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", m.table)
	err := m.conn.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if m.cipher == nil {
		return value, true, nil
	}

	plaintext, err := m.decrypt(key, value)
	if err != nil {
		return "", false, err
	}
	return string(plaintext), true, nil
}

// Delete removes key; deleting a missing key affects no rows and succeeds
func (m *SQLiteMedium) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", m.table)
	if _, err := m.conn.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection
func (m *SQLiteMedium) Close() error {
	return m.conn.Close()
}

// encrypt seals plaintext with the key name as associated data so a sealed
// value cannot be replayed under a different key
func (m *SQLiteMedium) encrypt(key string, plaintext []byte) (string, error) {
	nonce := make([]byte, m.cipher.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := m.cipher.Seal(nonce, nonce, plaintext, []byte(key))
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *SQLiteMedium) decrypt(key, encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := m.cipher.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := m.cipher.Open(nil, nonce, sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
