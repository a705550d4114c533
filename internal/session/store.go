package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/credential"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// sessionKey is the keyring entry holding the serialized session.
const sessionKey = "session"

// SessionStore persists the session across restarts.
type SessionStore interface {
	// Load returns the stored session, or a zero session when none exists.
	Load() (model.Session, error)
	Save(sess model.Session) error
	Clear() error
}

// KeyringStore persists the session as JSON in the system keyring, so
// tokens never land in plain files.
type KeyringStore struct{}

// NewKeyringStore returns a keyring-backed session store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Load reads the stored session from the keyring.
func (k *KeyringStore) Load() (model.Session, error) {
	raw, err := credential.Get(sessionKey)
	if errors.Is(err, credential.ErrNotFound) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshaling stored session: %w", err)
	}

	return sess, nil
}

// Save writes the session to the keyring.
func (k *KeyringStore) Save(sess model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return credential.Set(sessionKey, string(raw))
}

// Clear removes the stored session.
func (k *KeyringStore) Clear() error {
	return credential.Delete(sessionKey)
}
