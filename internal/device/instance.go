// Package device owns the Vulkan instance, the selected physical device, the
// logical device with its single graphics+present queue, and the memory
// allocator bound to them.
package device

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

type InstanceOptions struct {
	ApplicationName string
	// WindowExtensions are the instance extensions the windowing system needs
	// to create a surface.
	WindowExtensions []string
	Validation       bool
}

// Instance is the Vulkan instance plus the optional validation messenger.
type Instance struct {
	Driver core1_0.CoreInstanceDriver

	debugDriver    ext_debug_utils.ExtensionDriver
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	logger         *slog.Logger
	owned          *lifetime.Stack
}

func NewInstance(global core1_0.GlobalDriver, opts InstanceOptions, logger *slog.Logger) (*Instance, error) {
	inst := &Instance{
		logger: logger,
		owned:  lifetime.NewStack(logger),
	}

	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "scenedemo",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := global.AvailableExtensions()
	if err != nil {
		return nil, gpuerr.Initialization(err, "enumerate instance extensions")
	}

	for _, ext := range opts.WindowExtensions {
		if _, ok := extensions[ext]; !ok {
			return nil, errors.Wrapf(gpuerr.ErrMissingExtension, "instance extension %s", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if opts.Validation {
		layers, _, err := global.AvailableLayers()
		if err != nil {
			return nil, gpuerr.Initialization(err, "enumerate instance layers")
		}
		for _, layer := range validationLayers {
			if _, ok := layers[layer]; !ok {
				return nil, errors.Wrapf(gpuerr.ErrMissingLayer, "%s, install the LunarG Vulkan SDK", layer)
			}
			createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, layer)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		createInfo.Next = inst.messengerOptions()
	}

	inst.Driver, _, err = global.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, gpuerr.Initialization(err, "create instance")
	}
	inst.owned.Push("instance", func() { inst.Driver.DestroyInstance(nil) })

	if opts.Validation {
		inst.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(inst.Driver)
		inst.debugMessenger, _, err = inst.debugDriver.CreateDebugUtilsMessenger(nil, inst.messengerOptions())
		if err != nil {
			inst.Destroy()
			return nil, gpuerr.Initialization(err, "create debug messenger")
		}
		inst.owned.Push("debug messenger", func() {
			inst.debugDriver.DestroyDebugUtilsMessenger(inst.debugMessenger, nil)
		})
	}

	logger.Info("instance created",
		slog.Bool("validation", opts.Validation),
		slog.Any("extensions", createInfo.EnabledExtensionNames))
	return inst, nil
}

func (i *Instance) messengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logValidation,
	}
}

func (i *Instance) logValidation(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}
	i.logger.Log(context.Background(), level, data.Message, slog.Any("type", msgType))
	return false
}

// Destroy releases the messenger and the instance. Every device-level object
// and the surface must already be gone.
func (i *Instance) Destroy() {
	i.owned.Release()
}
