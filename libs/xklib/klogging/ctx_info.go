package klogging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// key is unexported to avoid collisions with context keys of other packages.
type key int

var ctxInfoKey key

// CtxInfo holds key/values attached to a context chain. Every log entry created from
// that context carries them (parents first).
type CtxInfo struct {
	Parent  *CtxInfo
	mu      sync.Mutex
	details map[string]string
}

func NewCtxInfo(parent *CtxInfo) *CtxInfo {
	return &CtxInfo{
		Parent:  parent,
		details: map[string]string{},
	}
}

// GetCurrentCtxInfo returns nil if ctx carries no CtxInfo.
func GetCurrentCtxInfo(ctx context.Context) *CtxInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(ctxInfoKey).(*CtxInfo)
	return info
}

// CreateCtxInfo creates a child info, parented to the info already in ctx (if any).
func CreateCtxInfo(ctx context.Context) (context.Context, *CtxInfo) {
	info := NewCtxInfo(GetCurrentCtxInfo(ctx))
	return AttachToCtx(ctx, info), info
}

// GetOrCreateCtxInfo reuses the info found in ctx instead of creating a child.
func GetOrCreateCtxInfo(ctx context.Context) (context.Context, *CtxInfo) {
	if info := GetCurrentCtxInfo(ctx); info != nil {
		return ctx, info
	}
	return CreateCtxInfo(ctx)
}

func AttachToCtx(ctx context.Context, info *CtxInfo) context.Context {
	if info == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxInfoKey, info)
}

func (info *CtxInfo) With(k string, v string) *CtxInfo {
	info.mu.Lock()
	defer info.mu.Unlock()
	info.details[k] = v
	return info
}

// VisitForward visits parents first, then this node; keys of one node in sorted order.
// visitor returns false to stop early; VisitForward then returns false as well.
func (info *CtxInfo) VisitForward(visitor func(k string, v string) bool) bool {
	if info == nil {
		return true
	}
	if !info.Parent.VisitForward(visitor) {
		return false
	}
	info.mu.Lock()
	keys := make([]string, 0, len(info.details))
	for k := range info.details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]string, len(keys))
	for i, k := range keys {
		snapshot[i] = info.details[k]
	}
	info.mu.Unlock()

	for i, k := range keys {
		if snapshot[i] == "" {
			continue
		}
		if !visitor(k, snapshot[i]) {
			return false
		}
	}
	return true
}

// FindByKey searches this node then its parents; empty values count as missing.
func (info *CtxInfo) FindByKey(k string, fallback string) string {
	if info == nil {
		return fallback
	}
	info.mu.Lock()
	v, ok := info.details[k]
	info.mu.Unlock()
	if ok && v != "" {
		return v
	}
	return info.Parent.FindByKey(k, fallback)
}

func (info *CtxInfo) String() string {
	var b strings.Builder
	info.VisitForward(func(k string, v string) bool {
		fmt.Fprintf(&b, ", %s=%v", k, v)
		return true
	})
	return b.String()
}
