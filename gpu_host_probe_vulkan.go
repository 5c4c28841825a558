//go:build !headless

// gpu_host_probe_vulkan.go - Vulkan host device probe

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
gpu_host_probe_vulkan.go - Host Device Probe (Vulkan)

Checks that a usable Vulkan loader, instance and physical device exist before
the video core commits to the vulkan graphics API. Rendering itself stays on
the software path; the probe only decides whether the host qualifies and
reports why not through ResultStatus.
*/

package main

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

func init() {
	compiledFeatures = append(compiledFeatures, "probe:vulkan")
}

const (
	VULKAN_MIN_API_MAJOR = 1
	VULKAN_MIN_API_MINOR = 1
)

// HostDeviceInfo describes the device found by the probe.
type HostDeviceInfo struct {
	Name       string
	APIVersion string
	Devices    int
}

func vulkanVersionParts(v uint32) (major, minor, patch uint32) {
	return v >> 22, (v >> 12) & 0x3FF, v & 0xFFF
}

func probeHostDevice(api string) (HostDeviceInfo, ResultStatus, error) {
	if api != GRAPHICS_API_VULKAN {
		return HostDeviceInfo{Name: "software", APIVersion: "n/a"}, ResultStatusSuccess, nil
	}

	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: "vulkan loader not found", Err: err}
	}
	if err := vk.Init(); err != nil {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: "vulkan init", Err: err}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   "Intuition GPU\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "Intuition Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(VULKAN_MIN_API_MAJOR, VULKAN_MIN_API_MINOR, 0),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}
	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: fmt.Sprintf("vkCreateInstance returned %d", res)}
	}
	defer vk.DestroyInstance(instance, nil)
	if err := vk.InitInstance(instance); err != nil {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: "vulkan instance functions", Err: err}
	}

	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success || count == 0 {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: "no vulkan physical device"}
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, devices); res != vk.Success {
		return HostDeviceInfo{}, ResultStatusErrorGenericDrivers,
			&VideoError{Operation: "host probe", Details: fmt.Sprintf("vkEnumeratePhysicalDevices returned %d", res)}
	}

	// Take the first device that meets the minimum API level
	var best HostDeviceInfo
	for _, dev := range devices[:count] {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		major, minor, patch := vulkanVersionParts(props.ApiVersion)
		info := HostDeviceInfo{
			Name:       vk.ToString(props.DeviceName[:]),
			APIVersion: fmt.Sprintf("%d.%d.%d", major, minor, patch),
			Devices:    int(count),
		}
		if best.Name == "" {
			best = info
		}
		if major > VULKAN_MIN_API_MAJOR || (major == VULKAN_MIN_API_MAJOR && minor >= VULKAN_MIN_API_MINOR) {
			return info, ResultStatusSuccess, nil
		}
	}
	return best, ResultStatusErrorUnsupportedAPI, &VideoError{
		Operation: "host probe",
		Details:   fmt.Sprintf("%s supports Vulkan %s, need %d.%d",
			best.Name, best.APIVersion, VULKAN_MIN_API_MAJOR, VULKAN_MIN_API_MINOR),
	}
}
