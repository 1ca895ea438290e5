package usercontext

// Locals keys shared between middleware and handlers.
const KeyUserContext = "USER_CONTEXT"
