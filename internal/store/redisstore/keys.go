package redisstore

import "strconv"

const (
	// KeyPrefixService is the prefix for service record hashes
	KeyPrefixService = "beacon:service:"
	// KeyServiceSeq is the counter used to assign service IDs
	KeyServiceSeq = "beacon:services:seq"
	// KeyServiceNames maps service names to IDs (uniqueness index)
	KeyServiceNames = "beacon:services:names"
	// KeyAllServices is the sorted set of all service IDs, scored by ID
	KeyAllServices = "beacon:services:all"
)

// ServiceKey returns the Redis key for a service by ID
func ServiceKey(id int64) string {
	return KeyPrefixService + strconv.FormatInt(id, 10)
}
