package farcaster

// VerifiedAddresses holds a user's verified onchain addresses.
type VerifiedAddresses struct {
	EthAddresses []string `json:"eth_addresses"`
	Primary      struct {
		EthAddress string `json:"eth_address"`
	} `json:"primary"`
}

// User is a Farcaster account as returned by Neynar.
type User struct {
	FID               int64             `json:"fid"`
	Username          string            `json:"username"`
	VerifiedAddresses VerifiedAddresses `json:"verified_addresses"`
}

// PrimaryEthAddress returns the user's primary verified address, falling back
// to the first verified address when no primary is set.
func (u *User) PrimaryEthAddress() string {
	if u.VerifiedAddresses.Primary.EthAddress != "" {
		return u.VerifiedAddresses.Primary.EthAddress
	}
	if len(u.VerifiedAddresses.EthAddresses) > 0 {
		return u.VerifiedAddresses.EthAddresses[0]
	}
	return ""
}

// Cast is a Farcaster cast as returned by Neynar.
type Cast struct {
	Hash   string `json:"hash"`
	Text   string `json:"text"`
	Author User   `json:"author"`
}

type castResponse struct {
	Cast Cast `json:"cast"`
}

type bulkUsersResponse struct {
	Users []User `json:"users"`
}

type publishCastRequest struct {
	SignerUUID string `json:"signer_uuid"`
	Text       string `json:"text"`
	Parent     string `json:"parent,omitempty"`
}
