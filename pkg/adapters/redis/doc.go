// Package redis provides a dependency cache shared through Redis.
package redis
