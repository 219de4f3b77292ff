package handle

import (
	"github.com/dop251/goja"

	"github.com/wippyai/jsbridge/errors"
)

// bindIdentityLocked points identity id at p. A negative id clears p's
// identity. Caller holds e.mu.
func (e *Engine) bindIdentityLocked(p *Proxy, id int32) error {
	if id < 0 {
		e.unbindIdentityLocked(p)
		return nil
	}
	if owner, ok := e.identities[id]; ok && owner != p {
		return errors.IdentityConflict(uint32(e.id), id, int32(owner.id))
	}
	e.unbindIdentityLocked(p)
	e.identities[id] = p
	p.identity.Store(id)
	return nil
}

func (e *Engine) unbindIdentityLocked(p *Proxy) {
	id := p.identity.Load()
	if id < 0 {
		return
	}
	if e.identities[id] == p {
		delete(e.identities, id)
	}
	p.identity.Store(NoIdentity)
}

// assignIdentityLocked issues the next unused identity to p. Identities
// are not reused while the counter has room, so a recycled slot never
// inherits its previous occupant's identity.
func (e *Engine) assignIdentityLocked(p *Proxy) int32 {
	for {
		id := e.nextIdentity
		e.nextIdentity++
		if e.nextIdentity < 0 {
			e.nextIdentity = 0
		}
		if _, taken := e.identities[id]; !taken {
			e.identities[id] = p
			p.identity.Store(id)
			return id
		}
	}
}

// bindObjectLocked records p as the proxy wrapping o. Caller holds e.mu.
func (e *Engine) bindObjectLocked(p *Proxy, o *goja.Object) {
	e.objects[o] = p
	p.object = o
}

func (e *Engine) unbindObjectLocked(p *Proxy) {
	if p.object == nil {
		return
	}
	if e.objects[p.object] == p {
		delete(e.objects, p.object)
	}
	p.object = nil
}

// probeIdentity finds the live proxy already wrapping v. Objects are
// matched by pointer, so no script code runs.
func (e *Engine) probeIdentity(v goja.Value) (*Proxy, uint32, bool) {
	o, ok := v.(*goja.Object)
	if !ok || o == nil {
		return nil, 0, false
	}

	e.mu.Lock()
	p := e.objects[o]
	e.mu.Unlock()
	if p == nil {
		return nil, 0, false
	}

	gen, s := p.load()
	if !s.Live() {
		return nil, 0, false
	}
	return p, gen, true
}

// Identity returns the external identity of h, or NoIdentity.
func (e *Engine) Identity(h Handle) int32 {
	e.own(h)
	return h.Identity()
}

// SetIdentity binds h to the external identity id, replacing its current
// one. A negative id clears it and stops the object from being matched
// when it is wrapped again. Binding an id that another live proxy holds
// fails.
func (e *Engine) SetIdentity(h Handle, id int32) error {
	e.scope.enter()
	defer e.scope.exit()

	if e.Disposed() {
		return errors.EngineDisposed(errors.PhaseIdentity, uint32(e.id))
	}
	p := e.own(h)
	if p == nil || !h.current() || !h.State().Live() {
		return errors.StaleHandle(errors.PhaseIdentity, uint32(e.id), int32(h.ID()))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.bindIdentityLocked(p, id); err != nil {
		return err
	}
	if id < 0 {
		e.unbindObjectLocked(p)
	}
	return nil
}

// ByIdentity returns the live handle bound to identity id.
func (e *Engine) ByIdentity(id int32) (Handle, bool) {
	e.scope.enter()
	defer e.scope.exit()

	e.mu.Lock()
	p := e.identities[id]
	e.mu.Unlock()
	if p == nil {
		return Handle{}, false
	}
	h := p.handle()
	return h, h.State().Live()
}
