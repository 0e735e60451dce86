package bookings_service_api

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin/codec/json"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "flightbooking.bookings.v1.BookingsService"
	// CodecName is the content-subtype clients must send: application/grpc+json.
	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries messages as JSON with the same encoder the HTTP API uses.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.API.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.API.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

type CreateBookingRequest struct {
	UserID         int64  `json:"user_id"`
	FlightID       int64  `json:"flight_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	PassengerPhone string `json:"passenger_phone"`
	SeatsCount     int    `json:"seats_count"`
}

// BookingRequest addresses a booking by id or, when id is zero, by number.
type BookingRequest struct {
	ID            int64  `json:"id"`
	BookingNumber string `json:"booking_number"`
}

type BookingsServer interface {
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error)
}

// Server exposes the booking lifecycle over gRPC.
type Server struct {
	bookings booking.BookingUseCase
	logger   *zap.Logger
}

func NewServer(bookings booking.BookingUseCase, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{bookings: bookings, logger: logger}
}

func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

func (s *Server) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error) {
	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		UserID:         req.UserID,
		FlightID:       req.FlightID,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		SeatsCount:     req.SeatsCount,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return created, nil
}

func (s *Server) GetBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	id, err := s.resolve(ctx, req)
	if err != nil {
		return nil, s.toStatus(err)
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return b, nil
}

func (s *Server) ConfirmBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	id, err := s.resolve(ctx, req)
	if err != nil {
		return nil, s.toStatus(err)
	}
	b, err := s.bookings.ConfirmBooking(ctx, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return b, nil
}

func (s *Server) CancelBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	id, err := s.resolve(ctx, req)
	if err != nil {
		return nil, s.toStatus(err)
	}
	b, err := s.bookings.CancelBooking(ctx, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return b, nil
}

func (s *Server) resolve(ctx context.Context, req *BookingRequest) (int64, error) {
	if req.ID > 0 {
		return req.ID, nil
	}
	if req.BookingNumber == "" {
		return 0, fmt.Errorf("%w: id or booking_number is required", domain.ErrValidation)
	}
	b, err := s.bookings.GetBookingByNumber(ctx, req.BookingNumber)
	if err != nil {
		return 0, err
	}
	return b.ID, nil
}

// toStatus maps domain error kinds to gRPC codes. Unknown errors are logged
// and hidden from the caller.
func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrCapacity),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("booking rpc failed", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func unaryHandler[Req any](method string, call func(BookingsServer, context.Context, *Req) (*domain.Booking, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingsServer), ctx, req.(*Req))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", BookingsServer.CreateBooking)},
		{MethodName: "GetBooking", Handler: unaryHandler("GetBooking", BookingsServer.GetBooking)},
		{MethodName: "ConfirmBooking", Handler: unaryHandler("ConfirmBooking", BookingsServer.ConfirmBooking)},
		{MethodName: "CancelBooking", Handler: unaryHandler("CancelBooking", BookingsServer.CancelBooking)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookings_service_api",
}

// Client calls BookingsService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error) {
	return c.invoke(ctx, "CreateBooking", req)
}

func (c *Client) GetBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	return c.invoke(ctx, "GetBooking", req)
}

func (c *Client) ConfirmBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	return c.invoke(ctx, "ConfirmBooking", req)
}

func (c *Client) CancelBooking(ctx context.Context, req *BookingRequest) (*domain.Booking, error) {
	return c.invoke(ctx, "CancelBooking", req)
}

func (c *Client) invoke(ctx context.Context, method string, req any) (*domain.Booking, error) {
	out := new(domain.Booking)
	err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
