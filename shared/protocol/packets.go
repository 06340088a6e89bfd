package protocol

// InitTCP is sent server→client first, carrying the provisional
// client id assigned at TCP accept.
type InitTCP struct {
	ClientID ClientID
}

func (InitTCP) PacketType() uint16 { return TypeInitTCP }

// InitUDP is sent client→server over UDP once the client has learned
// its id, so the server can bind the datagram's source address.
type InitUDP struct {
	ClientID ClientID
}

func (InitUDP) PacketType() uint16 { return TypeInitUDP }

// InitFinal closes the handshake: server→client over TCP once the UDP
// binding has been observed.
type InitFinal struct{}

func (InitFinal) PacketType() uint16 { return TypeInitFinal }

// RTTPing is a bare round-trip probe. The core registers it but does
// not drive a request/response loop; that is left to the application.
type RTTPing struct {
	IsReply bool
}

func (RTTPing) PacketType() uint16 { return TypeRTTPing }

// EntityCreate instructs the client to instantiate an entity of the
// given type tag under the given id.
type EntityCreate struct {
	ID      EntityID
	TypeTag string
}

func (EntityCreate) PacketType() uint16 { return TypeEntityCreate }

// EntityDestroy instructs the client to remove an entity.
type EntityDestroy struct {
	ID EntityID
}

func (EntityDestroy) PacketType() uint16 { return TypeEntityDestroy }

// EntityUpdateAttr carries non-physics attribute state (hit points).
type EntityUpdateAttr struct {
	ID    EntityID
	HP    uint32
	HPMax uint32
}

func (EntityUpdateAttr) PacketType() uint16 { return TypeEntityUpdateAttr }

// PhysState is the physics tuple shared by EntityUpdatePhys and each
// record inside EntityUpdatePhysMulti.
type PhysState struct {
	ID     EntityID
	X, Y   float64
	VX, VY float32
	Rot    float32
	RotVel float32
}

// EntityUpdatePhys is an immediate single-entity physics correction.
type EntityUpdatePhys struct {
	PhysState
}

func (EntityUpdatePhys) PacketType() uint16 { return TypeEntityUpdatePhys }

// EntityUpdatePhysMulti is the per-tick replication digest: a batch of
// physics states stamped with the sender's clock reading.
type EntityUpdatePhysMulti struct {
	RefTime float64
	Updates []PhysState
}

func (EntityUpdatePhysMulti) PacketType() uint16 { return TypeEntityUpdatePhysMulti }

// ClientSetLocalEntity flags (or unflags) an entity as locally
// authoritative on the receiving client.
type ClientSetLocalEntity struct {
	ID      EntityID
	IsLocal bool
}

func (ClientSetLocalEntity) PacketType() uint16 { return TypeClientSetLocalEntity }

func packPhysState(w *fieldWriter, s PhysState) {
	w.u16(uint16(s.ID))
	w.f64(s.X)
	w.f64(s.Y)
	w.f32(s.VX)
	w.f32(s.VY)
	w.f32(s.Rot)
	w.f32(s.RotVel)
}

func unpackPhysState(r *fieldReader) PhysState {
	return PhysState{
		ID:     EntityID(r.u16()),
		X:      r.f64(),
		Y:      r.f64(),
		VX:     r.f32(),
		VY:     r.f32(),
		Rot:    r.f32(),
		RotVel: r.f32(),
	}
}

// RegisterDefault installs the default packet registry (§4.2) into c.
// Both HybridServer and HybridClient must call this (or an equivalent
// registration covering the same ids) with a freshly constructed Codec.
func RegisterDefault(c *Codec) error {
	type reg struct {
		id     uint16
		pack   Packer
		unpack Unpacker
	}

	regs := []reg{
		{TypeInitTCP,
			func(p Packet) ([]byte, error) {
				w := &fieldWriter{}
				w.u16(uint16(p.(InitTCP).ClientID))
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				cid := r.u16()
				if r.err != nil {
					return nil, r.err
				}
				return InitTCP{ClientID: ClientID(cid)}, nil
			}},
		{TypeInitUDP,
			func(p Packet) ([]byte, error) {
				w := &fieldWriter{}
				w.u16(uint16(p.(InitUDP).ClientID))
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				cid := r.u16()
				if r.err != nil {
					return nil, r.err
				}
				return InitUDP{ClientID: ClientID(cid)}, nil
			}},
		{TypeInitFinal,
			func(p Packet) ([]byte, error) { return nil, nil },
			func(body []byte) (Packet, error) { return InitFinal{}, nil }},
		{TypeRTTPing,
			func(p Packet) ([]byte, error) {
				w := &fieldWriter{}
				w.boolean(p.(RTTPing).IsReply)
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				v := r.boolean()
				if r.err != nil {
					return nil, r.err
				}
				return RTTPing{IsReply: v}, nil
			}},
		{TypeEntityCreate,
			func(p Packet) ([]byte, error) {
				e := p.(EntityCreate)
				w := &fieldWriter{}
				w.u16(uint16(e.ID))
				w.fixedString(e.TypeTag, TypeTagSize)
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				id := r.u16()
				tag := r.fixedString(TypeTagSize)
				if r.err != nil {
					return nil, r.err
				}
				return EntityCreate{ID: EntityID(id), TypeTag: tag}, nil
			}},
		{TypeEntityDestroy,
			func(p Packet) ([]byte, error) {
				w := &fieldWriter{}
				w.u16(uint16(p.(EntityDestroy).ID))
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				id := r.u16()
				if r.err != nil {
					return nil, r.err
				}
				return EntityDestroy{ID: EntityID(id)}, nil
			}},
		{TypeEntityUpdateAttr,
			func(p Packet) ([]byte, error) {
				e := p.(EntityUpdateAttr)
				w := &fieldWriter{}
				w.u16(uint16(e.ID))
				w.u32(e.HP)
				w.u32(e.HPMax)
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				id := r.u16()
				hp := r.u32()
				hpMax := r.u32()
				if r.err != nil {
					return nil, r.err
				}
				return EntityUpdateAttr{ID: EntityID(id), HP: hp, HPMax: hpMax}, nil
			}},
		{TypeEntityUpdatePhys,
			func(p Packet) ([]byte, error) {
				w := &fieldWriter{}
				packPhysState(w, p.(EntityUpdatePhys).PhysState)
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				s := unpackPhysState(r)
				if r.err != nil {
					return nil, r.err
				}
				return EntityUpdatePhys{PhysState: s}, nil
			}},
		{TypeEntityUpdatePhysMulti,
			func(p Packet) ([]byte, error) {
				e := p.(EntityUpdatePhysMulti)
				w := &fieldWriter{}
				w.f64(e.RefTime)
				w.u16(uint16(len(e.Updates)))
				for _, s := range e.Updates {
					packPhysState(w, s)
				}
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				refTime := r.f64()
				count := r.u16()
				if r.err != nil {
					return nil, r.err
				}
				updates := make([]PhysState, 0, count)
				for i := uint16(0); i < count; i++ {
					updates = append(updates, unpackPhysState(r))
				}
				if r.err != nil {
					return nil, r.err
				}
				return EntityUpdatePhysMulti{RefTime: refTime, Updates: updates}, nil
			}},
		{TypeClientSetLocalEntity,
			func(p Packet) ([]byte, error) {
				e := p.(ClientSetLocalEntity)
				w := &fieldWriter{}
				w.u16(uint16(e.ID))
				w.boolean(e.IsLocal)
				return w.buf, nil
			},
			func(body []byte) (Packet, error) {
				r := newFieldReader(body)
				id := r.u16()
				flag := r.boolean()
				if r.err != nil {
					return nil, r.err
				}
				return ClientSetLocalEntity{ID: EntityID(id), IsLocal: flag}, nil
			}},
	}

	for _, reg := range regs {
		if err := c.Register(reg.id, reg.pack, reg.unpack); err != nil {
			return err
		}
	}
	return nil
}
