package auth

type sessionKey string

const userIDSessionKey = sessionKey("userID")
