package common

// AccessTokenHeaderName is the gRPC metadata key carrying the caller's
// access token.
const AccessTokenHeaderName = "access_token"

// RootParentID is the parent identifier of root-level nodes.
const RootParentID = ""
