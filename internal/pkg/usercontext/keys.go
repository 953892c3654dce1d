package usercontext

// Locals key of the request actor
const KeyActor = "ACTOR"
