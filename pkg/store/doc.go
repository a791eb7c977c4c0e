// Package store provides typed records and the Redis-backed document store for
// gather: events, user profiles, subscriptions, chat logs, read cursors,
// presence records, category votes and the category catalog.
//
// # Overview
//
// Every component of the discovery, subscription and messaging core reads and
// writes through a Client. Records are stored as Redis hashes (one hash per
// document) and relations as sets or sorted sets, so that concurrent writers
// rely only on per-key atomic commands. Multi-key writes that must land
// together (creating an event with its creator subscription and placeholder
// chat message) run inside MULTI/EXEC.
//
// # Namespacing
//
// All keys and Pub/Sub channels are prefixed with a namespace so several
// deployments (or test runs) can share one Redis server.
//
// # Redis Schema
//
// All keys follow the pattern: gather:{namespace}:{entity}:{id}
//
// Events: gather:{ns}:event:{event_id} (hash), gather:{ns}:events (set of ids)
// Profiles: gather:{ns}:user:{user_id}
// Subscriptions: gather:{ns}:subscription:{user_id}_{event_id}
// Subscription indexes: gather:{ns}:user:{user_id}:subscriptions,
// gather:{ns}:event:{event_id}:subscribers
// Chat log: gather:{ns}:chat:{event_id} (zset, score = timestamp ms)
// Chat messages: gather:{ns}:chat:{event_id}:message:{message_id}
// Read cursors: gather:{ns}:chat:{event_id}:read:{user_id}
// Presence: gather:{ns}:presence:{event_id} (zset, score = last active ms)
// Votes: gather:{ns}:suggestion:{suggestion_id}:votes, gather:{ns}:suggestions
// Categories: gather:{ns}:category:{category_id}, gather:{ns}:categories
//
// Pub/Sub channel: gather:{ns}:chat:{event_id}:events
//
// # Usage Example
//
//	client, err := store.NewClient(&redis.Options{Addr: "localhost:6379"}, "prod")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	subscribed, err := client.IsSubscribed(ctx, userID, eventID)
package store
