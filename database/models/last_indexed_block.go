package models

// LastIndexedBlock is the last block the polling indexer processed for a
// key, so a restart resumes where it stopped instead of at the head.
type LastIndexedBlock struct {
	Key         string `json:"key" bson:"key"`
	BlockNumber uint64 `json:"block_number" bson:"block_number"`
}
