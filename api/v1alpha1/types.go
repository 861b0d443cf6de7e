package v1alpha1

import "time"

// MintData is the json document sent in the "data" part of a mint request.
type MintData struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required,min=1,max=1000"`
	Message     string `json:"message,omitempty" validate:"required_with=Signature"`
	Signature   string `json:"signature,omitempty" validate:"omitempty,eth_signature"`
}

// Progress is the payload of a "progress" event.
type Progress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// MintResult is the payload of the "complete" event of a mint stream.
type MintResult struct {
	TokenID     string `json:"tokenId"`
	TxHash      string `json:"txHash,omitempty"`
	ImageCID    string `json:"imageCid"`
	MetadataCID string `json:"metadataCid"`
	BlobKey     string `json:"blobKey"`
	ImageURL    string `json:"imageUrl,omitempty"`
	TokenURI    string `json:"tokenUri"`
	Record      *Nft   `json:"record,omitempty"`
}

// Error is both the payload of an "error" event and the body of a failed json reply.
type Error struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Stage  string `json:"stage,omitempty"`
}

type VerifyResponse struct {
	VerificationID string `json:"verificationId"`
	TxHash         string `json:"txHash,omitempty"`
}

type NonceRequest struct {
	Address string `json:"address" validate:"required,eth_address"`
}

type NonceResponse struct {
	Nonce string `json:"nonce"`
}

type ConnectRequest struct {
	Address   string `json:"address" validate:"required,eth_address"`
	Message   string `json:"message" validate:"required"`
	Signature string `json:"signature" validate:"required,eth_signature"`
}

type ConnectResponse struct {
	Message string    `json:"message"`
	Address string    `json:"address"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expiresAt"`
}

type Me struct {
	Address string `json:"address"`
}

type Nft struct {
	TokenID     string    `json:"tokenId"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageCID    string    `json:"imageCid"`
	MetadataCID string    `json:"metadataCid"`
	TokenURI    string    `json:"tokenUri"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NftList struct {
	Items []Nft `json:"items"`
	Total int64 `json:"total"`
}

type AgentResponse struct {
	Agent       string `json:"agent"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"txHash"`
	// Verified is nil when the agent answered with a result that is neither verified nor rejected.
	Verified *bool `json:"verified"`
}

type AgentResponseList struct {
	VerificationID string          `json:"verificationId"`
	Responses      []AgentResponse `json:"responses"`
}

type Verification struct {
	VerificationID string          `json:"verificationId"`
	Requester      string          `json:"requester"`
	ImageCID       string          `json:"imageCid"`
	MetadataCID    string          `json:"metadataCid"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	TxHash         string          `json:"txHash,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	Responses      []AgentResponse `json:"responses"`
	// Status is the any-true verdict of the responses observed so far.
	Status VerificationStatus `json:"status"`
}

type VerificationStatus string

const (
	VerificationStatusPending     VerificationStatus = "pending"
	VerificationStatusVerified    VerificationStatus = "verified"
	VerificationStatusNotVerified VerificationStatus = "not_verified"
	VerificationStatusTimedOut    VerificationStatus = "timed_out"
)

type Info struct {
	GitCommit   string `json:"gitCommit"`
	VersionName string `json:"versionName"`
}
