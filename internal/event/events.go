package event

import "github.com/ZilDuck/blaze-marketplace/internal/entity"

type Type = entity.EventType

// AllEvents subscribes a listener to every event type.
const AllEvents Type = "*"
