package account

import "fmt"

// Result is what a successful from_*_credentials lookup hands back to the
// session layer: the account that authenticated (already substituted for
// the derived temporary account if the source was a shared account) and,
// when that substitution happened, the variation string that produced it
// (spec.md §4.8).
type Result struct {
	Account         *Account
	SharedVariation string // empty unless src was a shared account
}

// resolveShared applies the shared-account substitution (spec.md §4.8): if
// src has IS_SHARED_ACCOUNT set, mints and returns a derived temporary
// account instead of src itself. The variation folds in characterName
// alongside the credential secret so that two characters logging into the
// same shared account land on distinct derived ids (spec.md §3/§4.8, §8
// scenario 4's worked example: "KEY12345:Alice" vs "KEY12345:Bob").
// characterName is "" when the caller hasn't parsed a character
// select/create step yet; the derived id is then keyed on the secret
// alone, which callers must treat as provisional and re-derive once the
// name is known. The derived account is never persisted or added to any
// index — it exists only for the lifetime of the Login that references
// it.
func resolveShared(src *Account, secret, characterName string) Result {
	if !src.IsSharedAccount() {
		return Result{Account: src}
	}
	variation := secret
	if characterName != "" {
		variation = secret + ":" + characterName
	}
	return Result{Account: DeriveTemporary(src, variation), SharedVariation: variation}
}

// FromDCNTECredentials authenticates or creates an account from an early
// Dreamcast prototype serial/access-key pair. characterName is folded
// into the shared-account variation when known (spec.md §4.8); pass "" if
// the session layer hasn't parsed a character select/create step yet.
// allowCreate mirrors the per-version "allow_unregistered_users" config
// gate (spec.md §4.3).
func (idx *Index) FromDCNTECredentials(serial, accessKey, characterName string, allowCreate bool) (Result, error) {
	idx.mu.RLock()
	acc, ok := idx.byDCNTE[serial]
	idx.mu.RUnlock()
	if ok {
		return idx.checkDCNTESecret(acc, serial, accessKey, characterName)
	}

	v, err, _ := idx.sf.Do("dcnte:"+serial, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if acc, ok := idx.byDCNTE[serial]; ok {
			return acc, nil
		}
		if !allowCreate {
			return nil, ErrMissingAccount
		}
		id := idx.nextFreeIDLocked(fnv1a32Uint32(hashString(serial)))
		newAcc := New(id)
		newAcc.Credentials.DCNTE = []DCNTECredential{{Serial: serial, AccessKey: accessKey}}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkDCNTESecret(acc, serial, accessKey, characterName)
}

func (idx *Index) checkDCNTESecret(acc *Account, serial, accessKey, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		if !matchesDCNTE(acc, serial, accessKey) {
			return Result{}, ErrIncorrectAccessKey
		}
	}
	return resolveShared(acc, accessKey, characterName), nil
}

func matchesDCNTE(acc *Account, serial, accessKey string) bool {
	for _, c := range acc.Credentials.DCNTE {
		if c.Serial == serial {
			return c.AccessKey == accessKey
		}
	}
	return false
}

// FromDCCredentials covers DC v1 and v2 (identical shape; v2 selects the
// v2 table). DC derives its account id directly from the serial (spec.md
// §4.8: "DC/PC derive account id from serial directly"). characterName is
// folded into the shared-account variation when known (spec.md §4.8); pass
// "" if the session layer hasn't parsed a character select/create step
// yet.
func (idx *Index) FromDCCredentials(v2 bool, serial uint32, accessKey, characterName string, allowCreate bool) (Result, error) {
	table := idx.byDCv1
	kindPrefix := "dcv1:"
	if v2 {
		table = idx.byDCv2
		kindPrefix = "dcv2:"
	}

	idx.mu.RLock()
	acc, ok := table[serial]
	idx.mu.RUnlock()
	if ok {
		return idx.checkDCSecret(acc, v2, serial, accessKey, characterName)
	}

	key := fmt.Sprintf("%s%d", kindPrefix, serial)
	v, err, _ := idx.sf.Do(key, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		table := idx.byDCv1
		if v2 {
			table = idx.byDCv2
		}
		if acc, ok := table[serial]; ok {
			return acc, nil
		}
		if !allowCreate {
			return nil, ErrMissingAccount
		}
		id := idx.nextFreeIDLocked(serial)
		newAcc := New(id)
		cred := DCCredential{Serial: serial, AccessKey: accessKey}
		if v2 {
			newAcc.Credentials.DCv2 = []DCCredential{cred}
		} else {
			newAcc.Credentials.DCv1 = []DCCredential{cred}
		}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkDCSecret(acc, v2, serial, accessKey, characterName)
}

func (idx *Index) checkDCSecret(acc *Account, v2 bool, serial uint32, accessKey, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		creds := acc.Credentials.DCv1
		if v2 {
			creds = acc.Credentials.DCv2
		}
		matched := false
		for _, c := range creds {
			if c.Serial == serial && c.AccessKey == accessKey {
				matched = true
				break
			}
		}
		if !matched {
			return Result{}, ErrIncorrectAccessKey
		}
	}
	return resolveShared(acc, accessKey, characterName), nil
}

// FromPCCredentials is PC v2's login path, shaped identically to DC's.
// characterName is folded into the shared-account variation when known
// (spec.md §4.8); pass "" if the session layer hasn't parsed a character
// select/create step yet.
func (idx *Index) FromPCCredentials(serial uint32, accessKey, characterName string, allowCreate bool) (Result, error) {
	idx.mu.RLock()
	acc, ok := idx.byPCv2[serial]
	idx.mu.RUnlock()
	if ok {
		return idx.checkPCSecret(acc, serial, accessKey, characterName)
	}

	key := fmt.Sprintf("pcv2:%d", serial)
	v, err, _ := idx.sf.Do(key, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if acc, ok := idx.byPCv2[serial]; ok {
			return acc, nil
		}
		if !allowCreate {
			return nil, ErrMissingAccount
		}
		id := idx.nextFreeIDLocked(serial)
		newAcc := New(id)
		newAcc.Credentials.PCv2 = []PCCredential{{Serial: serial, AccessKey: accessKey}}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkPCSecret(acc, serial, accessKey, characterName)
}

func (idx *Index) checkPCSecret(acc *Account, serial uint32, accessKey, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		matched := false
		for _, c := range acc.Credentials.PCv2 {
			if c.Serial == serial && c.AccessKey == accessKey {
				matched = true
				break
			}
		}
		if !matched {
			return Result{}, ErrIncorrectAccessKey
		}
	}
	return resolveShared(acc, accessKey, characterName), nil
}

// FromGCCredentials is GameCube's login path. GC can never self-create
// without a password (spec.md §4.8), so allowCreate requires password to
// be non-empty as well. characterName is folded into the shared-account
// variation when known (spec.md §4.8); pass "" if the session layer
// hasn't parsed a character select/create step yet.
func (idx *Index) FromGCCredentials(serial uint32, accessKey, password, characterName string, allowCreate bool) (Result, error) {
	idx.mu.RLock()
	acc, ok := idx.byGC[serial]
	idx.mu.RUnlock()
	if ok {
		return idx.checkGCSecret(acc, serial, accessKey, password, characterName)
	}

	key := fmt.Sprintf("gc:%d", serial)
	v, err, _ := idx.sf.Do(key, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if acc, ok := idx.byGC[serial]; ok {
			return acc, nil
		}
		if !allowCreate || password == "" {
			return nil, ErrMissingAccount
		}
		id := idx.nextFreeIDLocked(serial)
		newAcc := New(id)
		newAcc.Credentials.GC = []GCCredential{{Serial: serial, AccessKey: accessKey, Password: password}}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkGCSecret(acc, serial, accessKey, password, characterName)
}

func (idx *Index) checkGCSecret(acc *Account, serial uint32, accessKey, password, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		matched := false
		for _, c := range acc.Credentials.GC {
			if c.Serial == serial && c.AccessKey == accessKey {
				matched = true
				if c.Password != password {
					return Result{}, ErrIncorrectPassword
				}
				break
			}
		}
		if !matched {
			return Result{}, ErrIncorrectAccessKey
		}
	}
	return resolveShared(acc, accessKey, characterName), nil
}

// FromXBCredentials is Xbox's login path: keyed on the Xbox Live user id,
// secret-checked against the account id half of the tuple. Creation
// derives the account id from a hash of the user id (spec.md §4.8: "XB,
// DC-NTE and BB derive the account id from a hash of the primary key
// string"). characterName is folded into the shared-account variation
// when known (spec.md §4.8); pass "" if the session layer hasn't parsed a
// character select/create step yet.
func (idx *Index) FromXBCredentials(userID, accountID uint64, gamertag, characterName string, allowCreate bool) (Result, error) {
	idx.mu.RLock()
	acc, ok := idx.byXB[userID]
	idx.mu.RUnlock()
	if ok {
		return idx.checkXBSecret(acc, userID, accountID, characterName)
	}

	key := fmt.Sprintf("xb:%d", userID)
	v, err, _ := idx.sf.Do(key, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if acc, ok := idx.byXB[userID]; ok {
			return acc, nil
		}
		if !allowCreate {
			return nil, ErrMissingAccount
		}
		id := idx.nextFreeIDLocked(fnv1a32Uint32(uint32(userID)) ^ fnv1a32Uint32(uint32(userID>>32)))
		newAcc := New(id)
		newAcc.Credentials.XB = []XBCredential{{UserID: userID, AccountID: accountID, Gamertag: gamertag}}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkXBSecret(acc, userID, accountID, characterName)
}

func (idx *Index) checkXBSecret(acc *Account, userID, accountID uint64, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		matched := false
		for _, c := range acc.Credentials.XB {
			if c.UserID == userID {
				matched = c.AccountID == accountID
				break
			}
		}
		if !matched {
			return Result{}, ErrIncorrectAccessKey
		}
	}
	return resolveShared(acc, fmt.Sprintf("%d", accountID), characterName), nil
}

// FromBBCredentials is Blue Burst's username/password login path. BB
// derives the account id from a hash of the username (spec.md §4.8) and
// is the only kind whose secret is bcrypt-hashed at rest. characterName
// is folded into the shared-account variation when known (spec.md §4.8);
// pass "" if the session layer hasn't parsed a character select/create
// step yet (BB's is a separate round trip after login per spec.md §4.3,
// not yet modeled here — see SPEC_FULL.md §9).
func (idx *Index) FromBBCredentials(username, password, characterName string, allowCreate bool) (Result, error) {
	idx.mu.RLock()
	acc, ok := idx.byBB[username]
	idx.mu.RUnlock()
	if ok {
		return idx.checkBBSecret(acc, username, password, characterName)
	}

	key := "bb:" + username
	v, err, _ := idx.sf.Do(key, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if acc, ok := idx.byBB[username]; ok {
			return acc, nil
		}
		if !allowCreate {
			return nil, ErrMissingAccount
		}
		hash, hashErr := HashBBPassword(password)
		if hashErr != nil {
			return nil, hashErr
		}
		id := idx.nextFreeIDLocked(fnv1a32Uint32(hashString(username)))
		newAcc := New(id)
		newAcc.Credentials.BB = []BBCredential{{Username: username, PasswordHash: hash}}
		idx.insertLocked(newAcc)
		if persistErr := idx.persistLocked(newAcc); persistErr != nil {
			return nil, persistErr
		}
		return newAcc, nil
	})
	if err != nil {
		return Result{}, err
	}
	acc = v.(*Account)
	return idx.checkBBSecret(acc, username, password, characterName)
}

func (idx *Index) checkBBSecret(acc *Account, username, password, characterName string) (Result, error) {
	if acc.IsBanned(NowFunc()) {
		return Result{}, ErrAccountBanned
	}
	if !acc.IsSharedAccount() {
		matched := false
		for _, c := range acc.Credentials.BB {
			if c.Username == username {
				matched = CheckBBPassword(c.PasswordHash, password)
				break
			}
		}
		if !matched {
			return Result{}, ErrIncorrectPassword
		}
	}
	return resolveShared(acc, username, characterName), nil
}

// hashString folds an arbitrary string key down to a uint32 seed for
// nextFreeIDLocked, using the same FNV-1a primitive as the shared-account
// derivation.
func hashString(s string) uint32 {
	return fnv1a32Seeded(0x811c9dc5, s)
}
